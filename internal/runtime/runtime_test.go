package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
	"github.com/gravityai-dev/gravity-server/transport"
)

// fakeTransport records every call so tests can assert on delivery order and
// targets. Error fields make individual paths fail on demand.
type fakeTransport struct {
	mu           sync.Mutex
	appends      []appendCall
	publishes    []publishCall
	appendErr    error
	publishErr   error
	subscribeErr error
	handler      transport.Handler
	subscribes   map[string]int
	unsubscribes map[string]int
	closed       bool
}

type appendCall struct {
	stream string
	entry  transport.LogEntry
}

type publishCall struct {
	channel string
	payload []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		subscribes:   make(map[string]int),
		unsubscribes: make(map[string]int),
	}
}

func (f *fakeTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, publishCall{channel: channel, payload: payload})
	return nil
}

func (f *fakeTransport) AppendToLog(ctx context.Context, streamKey string, entry transport.LogEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appends = append(f.appends, appendCall{stream: streamKey, entry: entry})
	return "1-0", nil
}

func (f *fakeTransport) Subscribe(ctx context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribes[channel]++
	return nil
}

func (f *fakeTransport) Unsubscribe(ctx context.Context, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes[channel]++
	return nil
}

func (f *fakeTransport) SetHandler(h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// emit simulates an inbound broadcast arriving from the backend.
func (f *fakeTransport) emit(channel string, payload []byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(channel, payload)
	}
}

func (f *fakeTransport) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.publishes)
}

func (f *fakeTransport) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appends)
}

// batchFakeTransport additionally implements transport.BatchDeliverer.
type batchFakeTransport struct {
	fakeTransport
	batches  [][]transport.BatchEntry
	batchErr error
}

func newBatchFakeTransport() *batchFakeTransport {
	f := &batchFakeTransport{}
	f.subscribes = make(map[string]int)
	f.unsubscribes = make(map[string]int)
	return f
}

func (f *batchFakeTransport) DeliverBatch(ctx context.Context, entries []transport.BatchEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, entries)
	return nil
}

var errBackendDown = errors.New("backend down")

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func testBuilder() *message.Builder {
	return message.NewBuilder("provider-1", message.WithClock(testClock))
}

func testPartial() message.Partial {
	return message.Partial{
		ChatID:         "chat-1",
		ConversationID: "conv-1",
		UserID:         "user-1",
	}
}

func mustBuild(b *message.Builder, payload message.Payload) message.Message {
	msg, err := b.Build(testPartial(), payload)
	if err != nil {
		panic(err)
	}
	return msg
}
