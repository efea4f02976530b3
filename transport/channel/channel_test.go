package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/transport"
)

func TestRegister(t *testing.T) {
	caps, ok := transport.GetCapabilities(TransportName)
	assert.True(t, ok)
	assert.Equal(t, "channel", caps.Name)
	assert.False(t, caps.SupportsDurableLog)
	assert.True(t, caps.SupportsOrdering)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.ChannelCapabilities, Capabilities())
}

func TestPublishReachesSubscriber(t *testing.T) {
	tr := New(logging.NewNopLogger())
	defer tr.Close()

	received := make(chan []byte, 1)
	tr.SetHandler(func(channel string, payload []byte) {
		received <- payload
	})
	require.NoError(t, tr.Subscribe(context.Background(), "c1"))

	require.NoError(t, tr.Publish(context.Background(), "c1", []byte(`{"x":1}`)))

	select {
	case payload := <-received:
		assert.JSONEq(t, `{"x":1}`, string(payload))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr := New(logging.NewNopLogger())
	defer tr.Close()

	received := make(chan []byte, 8)
	tr.SetHandler(func(channel string, payload []byte) {
		received <- payload
	})
	require.NoError(t, tr.Subscribe(context.Background(), "c1"))
	require.NoError(t, tr.Unsubscribe(context.Background(), "c1"))

	// The gochannel consumer shuts down asynchronously; give it a moment.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, tr.Publish(context.Background(), "c1", []byte("late")))

	select {
	case payload := <-received:
		t.Fatalf("expected no delivery after unsubscribe, got %q", payload)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, tr.Subscribed("c1"))
}

func TestAppendToLogKeepsOrder(t *testing.T) {
	tr := New(logging.NewNopLogger())
	defer tr.Close()

	for i, payload := range []string{"one", "two", "three"} {
		id, err := tr.AppendToLog(context.Background(), "stream:a", transport.LogEntry{
			Channel: "a",
			Payload: []byte(payload),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id, "entry %d", i)
	}

	entries := tr.ReadLog("stream:a")
	require.Len(t, entries, 3)
	assert.Equal(t, []byte("one"), entries[0].Entry.Payload)
	assert.Equal(t, []byte("three"), entries[2].Entry.Payload)
	assert.Less(t, entries[0].ID, entries[1].ID, "entry ids sort by append time")
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := New(logging.NewNopLogger())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	require.Error(t, tr.Publish(context.Background(), "c1", []byte("x")))
	_, err := tr.AppendToLog(context.Background(), "s", transport.LogEntry{})
	require.Error(t, err)
}

func TestSubscribeTwiceIsNoop(t *testing.T) {
	tr := New(logging.NewNopLogger())
	defer tr.Close()

	tr.SetHandler(func(string, []byte) {})
	require.NoError(t, tr.Subscribe(context.Background(), "c1"))
	require.NoError(t, tr.Subscribe(context.Background(), "c1"))
	assert.True(t, tr.Subscribed("c1"))
}
