// Package channel provides an in-memory transport for gravity. Broadcasts
// ride on Watermill's Go channel pub/sub; the durable log is a process-local
// append-only slice. Useful for testing and local development only: nothing
// survives a restart.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmmessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/gravityai-dev/gravity-server/internal/runtime/ids"
	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

func init() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new in-memory transport.
func Build(ctx context.Context, cfg transport.Config, logger logging.ServiceLogger) (transport.Transport, error) {
	return New(logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

// StoredEntry is one recorded durable-log entry, exposed for tests.
type StoredEntry struct {
	ID    string
	Entry transport.LogEntry
}

// Transport is the in-memory implementation of transport.Transport.
type Transport struct {
	pubSub *gochannel.GoChannel
	logger logging.ServiceLogger

	mu      sync.Mutex
	handler transport.Handler
	cancels map[string]context.CancelFunc
	log     map[string][]StoredEntry
	closed  bool
}

// New creates an in-memory transport.
func New(logger logging.ServiceLogger) *Transport {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Transport{
		pubSub:  gochannel.NewGoChannel(gochannel.Config{}, logging.NewWatermillAdapter(logger)),
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
		log:     make(map[string][]StoredEntry),
	}
}

// Publish broadcasts payload on the channel.
func (t *Transport) Publish(ctx context.Context, channel string, payload []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("channel transport is closed")
	}
	t.mu.Unlock()

	msg := wmmessage.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return t.pubSub.Publish(channel, msg)
}

// AppendToLog records the entry in the in-memory log and returns a
// time-sortable entry id.
func (t *Transport) AppendToLog(ctx context.Context, streamKey string, entry transport.LogEntry) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return "", fmt.Errorf("channel transport is closed")
	}
	id := ids.NewToken()
	t.log[streamKey] = append(t.log[streamKey], StoredEntry{ID: id, Entry: entry})
	return id, nil
}

// ReadLog returns a copy of the recorded entries for a stream, in append
// order. Test helper.
func (t *Transport) ReadLog(streamKey string) []StoredEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := t.log[streamKey]
	out := make([]StoredEntry, len(entries))
	copy(out, entries)
	return out
}

// SetHandler installs the inbound message callback.
func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Subscribe starts consuming broadcasts for the channel and forwarding them
// to the installed handler.
func (t *Transport) Subscribe(ctx context.Context, channel string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("channel transport is closed")
	}
	if _, ok := t.cancels[channel]; ok {
		t.mu.Unlock()
		return nil
	}
	consumeCtx, cancel := context.WithCancel(context.Background())
	t.cancels[channel] = cancel
	t.mu.Unlock()

	msgs, err := t.pubSub.Subscribe(consumeCtx, channel)
	if err != nil {
		t.mu.Lock()
		delete(t.cancels, channel)
		t.mu.Unlock()
		cancel()
		return err
	}

	go t.consume(channel, msgs)
	return nil
}

func (t *Transport) consume(channel string, msgs <-chan *wmmessage.Message) {
	for msg := range msgs {
		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(channel, msg.Payload)
		}
		msg.Ack()
	}
}

// Unsubscribe stops delivery for the channel.
func (t *Transport) Unsubscribe(ctx context.Context, channel string) error {
	t.mu.Lock()
	cancel, ok := t.cancels[channel]
	delete(t.cancels, channel)
	t.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// Subscribed reports whether the transport holds a live subscription for the
// channel. Test helper.
func (t *Transport) Subscribed(channel string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.cancels[channel]
	return ok
}

// Close tears down every subscription and the underlying pub/sub. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancels := t.cancels
	t.cancels = make(map[string]context.CancelFunc)
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return t.pubSub.Close()
}
