package runtime

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
	"github.com/gravityai-dev/gravity-server/transport"
)

// DeliverOption configures a single delivery or batch.
type DeliverOption func(*deliverOptions)

type deliverOptions struct {
	channel string
}

// WithChannel overrides the destination channel for this call. Without it the
// engine uses the deployment's default channel.
func WithChannel(channel string) DeliverOption {
	return func(o *deliverOptions) { o.channel = channel }
}

// Engine resolves destination channels and performs dual-path delivery:
// a durable log append followed by a best-effort broadcast. The asymmetry is
// deliberate: a failed append is logged and the broadcast still goes out, so
// producers keep "try" delivery when the log is briefly unavailable. Only a
// failed broadcast fails the publish.
type Engine struct {
	transport       transport.Transport
	logger          logging.ServiceLogger
	metrics         *BusMetrics
	tracer          trace.Tracer
	defaultChannel  string
	streamNamespace string
	durable         bool
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithEngineMetrics attaches delivery metrics.
func WithEngineMetrics(m *BusMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithoutDurableLog disables the durable append path, leaving broadcast-only
// delivery.
func WithoutDurableLog() EngineOption {
	return func(e *Engine) { e.durable = false }
}

// NewEngine creates a delivery engine over the given transport.
func NewEngine(tr transport.Transport, logger logging.ServiceLogger, defaultChannel, streamNamespace string, opts ...EngineOption) *Engine {
	if tr == nil {
		panic("gravity: engine transport cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	e := &Engine{
		transport:       tr,
		logger:          logger,
		tracer:          otel.Tracer("gravity-delivery"),
		defaultChannel:  defaultChannel,
		streamNamespace: streamNamespace,
		durable:         true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolveChannel applies the resolution order: explicit per-call override,
// else the deployment default.
func (e *Engine) resolveChannel(o deliverOptions) string {
	if o.channel != "" {
		return o.channel
	}
	return e.defaultChannel
}

// streamKey qualifies the channel with the durable stream namespace.
func (e *Engine) streamKey(channel string) string {
	return e.streamNamespace + ":" + channel
}

// Deliver serializes the message and performs dual-path delivery. It returns
// nil when the message was at least broadcast; a SerializationError or a
// TransportError on the broadcast path is terminal for this one call.
func (e *Engine) Deliver(ctx context.Context, msg message.Message, opts ...DeliverOption) error {
	var o deliverOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := message.Encode(msg)
	if err != nil {
		return err
	}

	channel := e.resolveChannel(o)
	ctx, span := e.tracer.Start(ctx, "Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.kind", string(msg.Kind())),
		attribute.String("message.channel", channel),
		attribute.String("message.conversation_id", msg.ConversationID),
	)

	e.appendDurable(ctx, channel, msg, payload)
	return e.broadcast(ctx, channel, msg, payload)
}

// appendDurable performs the durable log append. Failure is non-fatal: it is
// logged and counted, and delivery falls through to broadcast-only.
func (e *Engine) appendDurable(ctx context.Context, channel string, msg message.Message, payload []byte) {
	if !e.durable {
		return
	}
	stream := e.streamKey(channel)
	entry := transport.LogEntry{
		Channel:        channel,
		ConversationID: msg.ConversationID,
		ProviderID:     msg.ProviderID,
		Timestamp:      msg.Timestamp,
		Payload:        payload,
	}
	if _, err := e.transport.AppendToLog(ctx, stream, entry); err != nil {
		appendErr := &errspkg.DurableAppendError{Stream: stream, Err: err}
		e.logger.Error("durable append failed, falling back to broadcast-only", appendErr, logging.LogFields{
			"stream":  stream,
			"channel": channel,
			"id":      msg.ID,
		})
		e.metrics.recordDurableFailure(stream)
	}
}

func (e *Engine) broadcast(ctx context.Context, channel string, msg message.Message, payload []byte) error {
	if err := e.transport.Publish(ctx, channel, payload); err != nil {
		e.metrics.recordBroadcastFailure(channel)
		return &errspkg.TransportError{Op: "publish " + channel, Err: err}
	}

	e.metrics.recordPublished(string(msg.Kind()), channel)
	e.logger.Debug("message delivered", logging.LogFields{
		"id":      msg.ID,
		"kind":    string(msg.Kind()),
		"channel": channel,
	})
	return nil
}

// DeliverBatch delivers multiple messages in submission order. When the
// backend supports pipelining, the whole batch travels in one round trip and
// a failure anywhere aborts the remainder with a single error. Otherwise the
// engine falls back to sequential per-message delivery and stops at the first
// broadcast failure.
func (e *Engine) DeliverBatch(ctx context.Context, msgs []message.Message, opts ...DeliverOption) error {
	if len(msgs) == 0 {
		return nil
	}
	var o deliverOptions
	for _, opt := range opts {
		opt(&o)
	}
	channel := e.resolveChannel(o)

	// Serialize everything up front so a bad payload fails before any I/O.
	entries := make([]transport.BatchEntry, len(msgs))
	for i, msg := range msgs {
		payload, err := message.Encode(msg)
		if err != nil {
			return err
		}
		entries[i] = transport.BatchEntry{
			Channel: channel,
			Entry: transport.LogEntry{
				Channel:        channel,
				ConversationID: msg.ConversationID,
				ProviderID:     msg.ProviderID,
				Timestamp:      msg.Timestamp,
				Payload:        payload,
			},
		}
		if e.durable {
			entries[i].StreamKey = e.streamKey(channel)
		}
	}

	ctx, span := e.tracer.Start(ctx, "DeliverBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("message.channel", channel),
		attribute.Int("batch.size", len(msgs)),
	)

	e.metrics.recordBatch(len(msgs))

	if bd, ok := e.transport.(transport.BatchDeliverer); ok {
		if err := bd.DeliverBatch(ctx, entries); err != nil {
			e.metrics.recordBroadcastFailure(channel)
			return &errspkg.TransportError{Op: "batch publish " + channel, Err: err}
		}
		for _, msg := range msgs {
			e.metrics.recordPublished(string(msg.Kind()), channel)
		}
		return nil
	}

	for i, msg := range msgs {
		e.appendDurable(ctx, channel, msg, entries[i].Entry.Payload)
		if err := e.broadcast(ctx, channel, msg, entries[i].Entry.Payload); err != nil {
			return err
		}
	}
	return nil
}
