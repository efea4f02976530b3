// Package nats provides a NATS transport for gravity: core NATS for the
// broadcast channel and JetStream for the durable log. Channel names use ':'
// separators, which NATS reserves for nothing but JetStream stream names
// reject, so both the subject and the stream name are derived by sanitizing
// the gravity name.
package nats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

func init() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Config holds NATS-specific settings.
type Config struct {
	URL string

	// MaxLogMsgs caps each durable stream by message count. Zero leaves the
	// stream unbounded.
	MaxLogMsgs int64

	ReconnectWait time.Duration
	MaxReconnects int
}

// Build creates a NATS transport from the shared transport config.
func Build(ctx context.Context, cfg transport.Config, logger logging.ServiceLogger) (transport.Transport, error) {
	return New(Config{
		URL:           cfg.GetNATSURL(),
		MaxLogMsgs:    cfg.GetStreamMaxLen(),
		ReconnectWait: cfg.GetRetryInitialInterval(),
		MaxReconnects: cfg.GetRetryMaxRetries(),
	}, logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// Transport implements transport.Transport over a single NATS connection.
type Transport struct {
	cfg    Config
	logger logging.ServiceLogger

	mu      sync.Mutex
	nc      *nats.Conn
	js      nats.JetStreamContext
	handler transport.Handler
	subs    map[string]*nats.Subscription
	streams map[string]struct{}
	closed  bool
}

// New creates a NATS transport. The connection is established lazily on first
// use.
func New(cfg Config, logger logging.ServiceLogger) *Transport {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Transport{
		cfg:     cfg,
		logger:  logger,
		subs:    make(map[string]*nats.Subscription),
		streams: make(map[string]struct{}),
	}
}

// conn returns the shared connection, dialing it on first use. NATS handles
// reconnects internally, so unlike Redis there is no pool around it.
func (t *Transport) conn() (*nats.Conn, nats.JetStreamContext, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, fmt.Errorf("nats transport is closed")
	}
	if t.nc != nil {
		return t.nc, t.js, nil
	}

	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
	}
	if t.cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(t.cfg.ReconnectWait))
	}
	if t.cfg.MaxReconnects > 0 {
		opts = append(opts, nats.MaxReconnects(t.cfg.MaxReconnects))
	}

	nc, err := nats.Connect(t.cfg.URL, opts...)
	if err != nil {
		return nil, nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	t.nc = nc
	t.js = js
	t.logger.Debug("nats connection established", logging.LogFields{"url": t.cfg.URL})
	return nc, js, nil
}

// Publish broadcasts payload on the channel via core NATS.
func (t *Transport) Publish(ctx context.Context, channel string, payload []byte) error {
	nc, _, err := t.conn()
	if err != nil {
		return err
	}
	return nc.Publish(Subject(channel), payload)
}

// AppendToLog publishes the entry to a JetStream stream bound to the stream
// key, creating the stream on first use. The entry id is the JetStream
// sequence number.
func (t *Transport) AppendToLog(ctx context.Context, streamKey string, entry transport.LogEntry) (string, error) {
	_, js, err := t.conn()
	if err != nil {
		return "", err
	}
	subject := Subject(streamKey)
	if err := t.ensureStream(js, streamKey, subject); err != nil {
		return "", err
	}

	msg := nats.NewMsg(subject)
	msg.Data = entry.Payload
	msg.Header.Set("channel", entry.Channel)
	msg.Header.Set("conversationId", entry.ConversationID)
	msg.Header.Set("providerId", entry.ProviderID)
	msg.Header.Set("timestamp", entry.Timestamp.UTC().Format(time.RFC3339Nano))

	ack, err := js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(ack.Sequence, 10), nil
}

// ensureStream creates the JetStream stream for the key if it does not exist.
// Creation is remembered so the info round trip happens once per stream.
func (t *Transport) ensureStream(js nats.JetStreamContext, streamKey, subject string) error {
	name := StreamName(streamKey)

	t.mu.Lock()
	_, known := t.streams[name]
	t.mu.Unlock()
	if known {
		return nil
	}

	if _, err := js.StreamInfo(name); err != nil {
		cfg := &nats.StreamConfig{
			Name:     name,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		}
		if t.cfg.MaxLogMsgs > 0 {
			cfg.MaxMsgs = t.cfg.MaxLogMsgs
		}
		if _, err := js.AddStream(cfg); err != nil && err != nats.ErrStreamNameAlreadyInUse {
			return err
		}
	}

	t.mu.Lock()
	t.streams[name] = struct{}{}
	t.mu.Unlock()
	return nil
}

// SetHandler installs the inbound message callback.
func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Subscribe starts delivering broadcasts on the channel.
func (t *Transport) Subscribe(ctx context.Context, channel string) error {
	nc, _, err := t.conn()
	if err != nil {
		return err
	}

	t.mu.Lock()
	if _, ok := t.subs[channel]; ok {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	sub, err := nc.Subscribe(Subject(channel), func(msg *nats.Msg) {
		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(channel, msg.Data)
		}
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.subs[channel] = sub
	t.mu.Unlock()
	return nil
}

// Unsubscribe stops delivery for the channel.
func (t *Transport) Unsubscribe(ctx context.Context, channel string) error {
	t.mu.Lock()
	sub, ok := t.subs[channel]
	delete(t.subs, channel)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return sub.Unsubscribe()
}

// Close drains the connection. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.subs = make(map[string]*nats.Subscription)
	if t.nc != nil {
		t.nc.Close()
		t.nc = nil
		t.js = nil
	}
	return nil
}

// Subject maps a gravity channel or stream key to a NATS subject. ':' is the
// gravity separator; '.' is the NATS one.
func Subject(name string) string {
	return strings.ReplaceAll(name, ":", ".")
}

// StreamName maps a stream key to a valid JetStream stream name, which may
// not contain '.', '*', '>', or whitespace.
func StreamName(streamKey string) string {
	r := strings.NewReplacer(":", "_", ".", "_", "*", "_", ">", "_", " ", "_")
	return strings.ToUpper(r.Replace(streamKey))
}
