package runtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
)

func newTextPublisher(t *testing.T, ft *fakeTransport) *Publisher {
	t.Helper()
	engine := NewEngine(ft, nil, "gravity:output", "gravity:stream")
	p, err := NewPublisher(message.KindText, engine, testBuilder())
	require.NoError(t, err)
	return p
}

func TestNewPublisherValidation(t *testing.T) {
	engine := NewEngine(newFakeTransport(), nil, "c", "s")

	_, err := NewPublisher("NOT_A_KIND", engine, testBuilder())
	assert.Error(t, err)

	_, err = NewPublisher(message.KindText, nil, testBuilder())
	assert.ErrorIs(t, err, errspkg.ErrTransportRequired)

	_, err = NewPublisher(message.KindText, engine, nil)
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
}

func TestPublishRejectsKindMismatch(t *testing.T) {
	ft := newFakeTransport()
	p := newTextPublisher(t, ft)

	err := p.Publish(t.Context(), testPartial(), message.ProgressPayload{Message: "m", Progress: 50})

	assert.ErrorIs(t, err, errspkg.ErrKindMismatch)
	assert.Equal(t, 0, ft.publishCount())
}

func TestPublishRejectsNilPayload(t *testing.T) {
	p := newTextPublisher(t, newFakeTransport())

	err := p.Publish(t.Context(), testPartial(), nil)
	assert.ErrorIs(t, err, errspkg.ErrPayloadRequired)
}

func TestPublishTextEndToEnd(t *testing.T) {
	ft := newFakeTransport()
	p := newTextPublisher(t, ft)

	require.NoError(t, p.PublishText(t.Context(), testPartial(), "hi there"))

	require.Len(t, ft.publishes, 1)
	decoded, err := message.Decode(ft.publishes[0].payload)
	require.NoError(t, err)

	assert.Equal(t, message.KindText, decoded.Kind())
	assert.Equal(t, "hi there", decoded.Payload.(message.TextPayload).Text)
	assert.Equal(t, "provider-1", decoded.ProviderID)
	assert.Equal(t, message.StateActive, decoded.State)
	assert.NotEmpty(t, decoded.ID)
}

func TestPublishRequiresCorrelation(t *testing.T) {
	ft := newFakeTransport()
	p := newTextPublisher(t, ft)

	err := p.PublishText(t.Context(), message.Partial{ChatID: "chat-1"}, "hi")

	assert.ErrorIs(t, err, errspkg.ErrMissingCorrelation)
	assert.Equal(t, 0, ft.publishCount())
}

func TestTypedHelpers(t *testing.T) {
	tests := []struct {
		kind    message.Kind
		publish func(p *Publisher) error
		check   func(t *testing.T, payload message.Payload)
	}{
		{
			kind: message.KindProgressUpdate,
			publish: func(p *Publisher) error {
				return p.PublishProgress(t.Context(), testPartial(), "halfway", 50)
			},
			check: func(t *testing.T, payload message.Payload) {
				pp := payload.(message.ProgressPayload)
				assert.Equal(t, 50, pp.Progress)
				assert.Equal(t, "halfway", pp.Message)
			},
		},
		{
			kind: message.KindSystemMessage,
			publish: func(p *Publisher) error {
				return p.PublishSystemMessage(t.Context(), testPartial(), "maintenance", message.SeverityWarning)
			},
			check: func(t *testing.T, payload message.Payload) {
				sp := payload.(message.SystemMessagePayload)
				assert.Equal(t, message.SeverityWarning, sp.Level)
			},
		},
		{
			kind: message.KindStateUpdate,
			publish: func(p *Publisher) error {
				return p.PublishStateUpdate(t.Context(), testPartial(), message.StateComplete)
			},
			check: func(t *testing.T, payload message.Payload) {
				sp := payload.(message.StateUpdatePayload)
				assert.Equal(t, message.StateComplete, sp.NewState)
			},
		},
		{
			kind: message.KindJSONData,
			publish: func(p *Publisher) error {
				return p.PublishJSON(t.Context(), testPartial(), json.RawMessage(`{"a":1}`))
			},
			check: func(t *testing.T, payload message.Payload) {
				jp := payload.(message.JSONDataPayload)
				assert.JSONEq(t, `{"a":1}`, string(jp.Data))
			},
		},
		{
			kind: message.KindToolOutput,
			publish: func(p *Publisher) error {
				return p.PublishToolOutput(t.Context(), testPartial(), "search", json.RawMessage(`["r1"]`))
			},
			check: func(t *testing.T, payload message.Payload) {
				tp := payload.(message.ToolOutputPayload)
				assert.Equal(t, "search", tp.Tool)
			},
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			ft := newFakeTransport()
			engine := NewEngine(ft, nil, "gravity:output", "gravity:stream")
			p, err := NewPublisher(tc.kind, engine, testBuilder())
			require.NoError(t, err)

			require.NoError(t, tc.publish(p))

			require.Len(t, ft.publishes, 1)
			decoded, err := message.Decode(ft.publishes[0].payload)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, decoded.Kind())
			tc.check(t, decoded.Payload)
		})
	}
}

func TestPublishBatchLengthMismatch(t *testing.T) {
	p := newTextPublisher(t, newFakeTransport())

	err := p.PublishBatch(t.Context(), []message.Partial{testPartial()}, nil)
	assert.Error(t, err)
}

func TestPublishBatchBuildsBeforeIO(t *testing.T) {
	ft := newFakeTransport()
	engine := NewEngine(ft, nil, "gravity:output", "gravity:stream")
	p, err := NewPublisher(message.KindProgressUpdate, engine, testBuilder())
	require.NoError(t, err)

	// The second payload is out of range, so nothing may reach the transport.
	err = p.PublishBatch(t.Context(),
		[]message.Partial{testPartial(), testPartial()},
		[]message.Payload{
			message.ProgressPayload{Message: "ok", Progress: 10},
			message.ProgressPayload{Message: "bad", Progress: 150},
		},
	)

	require.Error(t, err)
	assert.Equal(t, 0, ft.publishCount())
	assert.Equal(t, 0, ft.appendCount())
}

func TestPublishBatchDeliversInOrder(t *testing.T) {
	ft := newFakeTransport()
	engine := NewEngine(ft, nil, "gravity:output", "gravity:stream")
	p, err := NewPublisher(message.KindMessageChunk, engine, testBuilder())
	require.NoError(t, err)

	idx := func(i int) *int { return &i }
	err = p.PublishBatch(t.Context(),
		[]message.Partial{testPartial(), testPartial(), testPartial()},
		[]message.Payload{
			message.ChunkPayload{Text: "a", Index: idx(0)},
			message.ChunkPayload{Text: "b", Index: idx(1)},
			message.ChunkPayload{Text: "c", Index: idx(2)},
		},
	)
	require.NoError(t, err)

	require.Len(t, ft.publishes, 3)
	for i, want := range []string{"a", "b", "c"} {
		decoded, err := message.Decode(ft.publishes[i].payload)
		require.NoError(t, err)
		chunk := decoded.Payload.(message.ChunkPayload)
		assert.Equal(t, want, chunk.Text)
		require.NotNil(t, chunk.Index)
		assert.Equal(t, i, *chunk.Index)
	}
}
