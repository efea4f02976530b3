package runtime

import (
	"context"
	"sync"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/ids"
	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
	"github.com/gravityai-dev/gravity-server/transport"
)

// Handler receives one decoded inbound message.
type Handler func(msg message.Message)

// Bus manages bidirectional channel subscriptions. Multiple handlers may
// share a channel; the underlying transport subscription is issued once on
// the first handler and torn down once when the last handler unregisters.
type Bus struct {
	transport transport.Transport
	logger    logging.ServiceLogger
	metrics   *BusMetrics

	mu       sync.RWMutex
	handlers map[string]map[string]Handler // channel → token → handler
}

// NewBus creates an event bus over the transport and installs itself as the
// transport's inbound message handler.
func NewBus(tr transport.Transport, logger logging.ServiceLogger, metrics *BusMetrics) *Bus {
	if tr == nil {
		panic("gravity: bus transport cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b := &Bus{
		transport: tr,
		logger:    logger,
		metrics:   metrics,
		handlers:  make(map[string]map[string]Handler),
	}
	tr.SetHandler(b.dispatch)
	return b
}

// Subscribe registers a handler for broadcasts on the channel and returns an
// idempotent unsubscribe function. The transport subscription is shared: it
// is created for the first handler on a channel and removed with the last.
func (b *Bus) Subscribe(ctx context.Context, channel string, h Handler) (func(), error) {
	if channel == "" {
		return nil, errspkg.ErrChannelRequired
	}
	if h == nil {
		return nil, errspkg.ErrHandlerRequired
	}

	token := ids.NewToken()

	b.mu.Lock()
	set, exists := b.handlers[channel]
	if !exists {
		set = make(map[string]Handler)
		b.handlers[channel] = set
	}
	set[token] = h
	first := len(set) == 1
	b.mu.Unlock()

	if first {
		if err := b.transport.Subscribe(ctx, channel); err != nil {
			b.mu.Lock()
			delete(b.handlers[channel], token)
			if len(b.handlers[channel]) == 0 {
				delete(b.handlers, channel)
			}
			b.mu.Unlock()
			return nil, &errspkg.TransportError{Op: "subscribe " + channel, Err: err}
		}
		b.logger.Debug("channel subscribed", logging.LogFields{"channel": channel})
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { b.remove(channel, token) })
	}
	return unsubscribe, nil
}

func (b *Bus) remove(channel, token string) {
	b.mu.Lock()
	set, ok := b.handlers[channel]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(set, token)
	last := len(set) == 0
	if last {
		delete(b.handlers, channel)
	}
	b.mu.Unlock()

	if last {
		if err := b.transport.Unsubscribe(context.Background(), channel); err != nil {
			b.logger.Error("channel unsubscribe failed", err, logging.LogFields{"channel": channel})
			return
		}
		b.logger.Debug("channel unsubscribed", logging.LogFields{"channel": channel})
	}
}

// HandlerCount reports the registered handlers for a channel.
func (b *Bus) HandlerCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[channel])
}

// dispatch is the transport's inbound callback. Broadcasts for channels with
// no handlers are dropped silently; malformed payloads are logged and dropped
// without crashing the loop; a panicking handler does not prevent the other
// handlers for the same event from running.
func (b *Bus) dispatch(channel string, payload []byte) {
	b.mu.RLock()
	set := b.handlers[channel]
	snapshot := make([]Handler, 0, len(set))
	for _, h := range set {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		b.metrics.recordDropped("no_handlers")
		return
	}

	msg, err := message.Decode(payload)
	if err != nil {
		b.metrics.recordDropped("malformed")
		b.logger.Error("dropping malformed broadcast", err, logging.LogFields{"channel": channel})
		return
	}

	b.metrics.recordDispatched(channel)
	for _, h := range snapshot {
		b.invoke(channel, h, msg)
	}
}

func (b *Bus) invoke(channel string, h Handler, msg message.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", nil, logging.LogFields{
				"channel": channel,
				"id":      msg.ID,
				"panic":   r,
			})
		}
	}()
	h(msg)
}
