package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/transport"
)

type stubConfig struct{}

func (stubConfig) GetTransport() string                   { return "redis" }
func (stubConfig) GetHost() string                        { return "redis.internal" }
func (stubConfig) GetPort() int                           { return 6380 }
func (stubConfig) GetUsername() string                    { return "svc" }
func (stubConfig) GetPassword() string                    { return "secret" }
func (stubConfig) GetDB() int                             { return 2 }
func (stubConfig) GetTLS() bool                           { return true }
func (stubConfig) GetNATSURL() string                     { return "" }
func (stubConfig) GetStreamMaxLen() int64                 { return 5000 }
func (stubConfig) GetRetryMaxRetries() int                { return 4 }
func (stubConfig) GetRetryInitialInterval() time.Duration { return 100 * time.Millisecond }
func (stubConfig) GetRetryMaxInterval() time.Duration     { return 2 * time.Second }

func TestRegisteredInDefaultRegistry(t *testing.T) {
	assert.True(t, transport.Has(TransportName))

	caps, ok := transport.GetCapabilities(TransportName)
	require.True(t, ok)
	assert.True(t, caps.SupportsDurableLog)
	assert.True(t, caps.SupportsBatching)
	assert.True(t, caps.SupportsOrdering)
}

func TestBuildMapsConfig(t *testing.T) {
	tr, err := Build(t.Context(), stubConfig{}, logging.NewNopLogger())
	require.NoError(t, err)
	defer tr.Close()

	rt, ok := tr.(*Transport)
	require.True(t, ok)
	assert.Equal(t, "redis.internal", rt.key.Host)
	assert.Equal(t, 6380, rt.key.Port)
	assert.Equal(t, 2, rt.key.DB)
	assert.Equal(t, "svc", rt.key.Username)
	assert.Equal(t, int64(5000), rt.cfg.StreamMaxLen)
	assert.True(t, rt.cfg.TLS)
}

func TestXAddArgs(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	entry := transport.LogEntry{
		Channel:        "gravity:output",
		ConversationID: "conv-1",
		ProviderID:     "prov-1",
		Timestamp:      ts,
		Payload:        []byte(`{"type":"TEXT"}`),
	}

	t.Run("with trimming", func(t *testing.T) {
		tr := New(Config{StreamMaxLen: 1000}, nil)
		defer tr.Close()

		args := tr.xaddArgs("gravity:stream:gravity:output", entry)
		assert.Equal(t, "gravity:stream:gravity:output", args.Stream)
		assert.Equal(t, int64(1000), args.MaxLen)
		assert.True(t, args.Approx)

		values, ok := args.Values.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "gravity:output", values["channel"])
		assert.Equal(t, "conv-1", values["conversationId"])
		assert.Equal(t, "prov-1", values["providerId"])
		assert.Equal(t, "2025-03-14T09:26:53.589793Z", values["timestamp"])
		assert.Equal(t, []byte(`{"type":"TEXT"}`), values["payload"])
	})

	t.Run("trimming disabled", func(t *testing.T) {
		tr := New(Config{}, nil)
		defer tr.Close()

		args := tr.xaddArgs("s", entry)
		assert.Zero(t, args.MaxLen)
		assert.False(t, args.Approx)
	})
}

func TestDeliverBatchEmptyIsNoop(t *testing.T) {
	// An empty batch must not dial anything.
	tr := New(Config{Host: "unreachable.invalid", Port: 1}, nil)
	defer tr.Close()

	assert.NoError(t, tr.DeliverBatch(t.Context(), nil))
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := New(Config{}, nil)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	err := tr.Subscribe(t.Context(), "gravity:output")
	assert.Error(t, err)
}

func TestUnsubscribeWithoutSubscriberIsNoop(t *testing.T) {
	tr := New(Config{}, nil)
	defer tr.Close()

	assert.NoError(t, tr.Unsubscribe(t.Context(), "gravity:output"))
}

func TestBatchDelivererCapability(t *testing.T) {
	var tr transport.Transport = New(Config{}, nil)
	defer tr.Close()

	_, ok := tr.(transport.BatchDeliverer)
	assert.True(t, ok)
}
