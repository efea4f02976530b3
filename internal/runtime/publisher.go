package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
)

// Publisher emits messages of a single kind. It is a thin typed layer: each
// helper assembles the envelope and payload, then hands the result to the
// delivery engine. A Publisher never mutates a message after construction.
type Publisher struct {
	kind    message.Kind
	engine  *Engine
	builder *message.Builder
}

// NewPublisher creates a publisher bound to one message kind.
func NewPublisher(kind message.Kind, engine *Engine, builder *message.Builder) (*Publisher, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("gravity: unknown message kind %q", kind)
	}
	if engine == nil {
		return nil, errspkg.ErrTransportRequired
	}
	if builder == nil {
		return nil, errspkg.ErrConfigRequired
	}
	return &Publisher{kind: kind, engine: engine, builder: builder}, nil
}

// Kind returns the message kind this publisher emits.
func (p *Publisher) Kind() message.Kind { return p.kind }

// Publish builds and delivers a message. The payload's kind must match the
// publisher's kind: a publisher must never emit a discriminant whose fields
// it does not populate.
func (p *Publisher) Publish(ctx context.Context, partial message.Partial, payload message.Payload, opts ...DeliverOption) error {
	if payload == nil {
		return errspkg.ErrPayloadRequired
	}
	if payload.Kind() != p.kind {
		return fmt.Errorf("%w: have %s, publisher emits %s", errspkg.ErrKindMismatch, payload.Kind(), p.kind)
	}
	msg, err := p.builder.Build(partial, payload)
	if err != nil {
		return err
	}
	return p.engine.Deliver(ctx, msg, opts...)
}

// PublishBatch builds every message first (so a bad one fails before any I/O)
// and delivers them in submission order through one pipelined round trip when
// the transport supports it.
func (p *Publisher) PublishBatch(ctx context.Context, partials []message.Partial, payloads []message.Payload, opts ...DeliverOption) error {
	if len(partials) != len(payloads) {
		return fmt.Errorf("gravity: %d partials for %d payloads", len(partials), len(payloads))
	}
	msgs := make([]message.Message, len(partials))
	for i := range partials {
		if payloads[i] == nil {
			return errspkg.ErrPayloadRequired
		}
		if payloads[i].Kind() != p.kind {
			return fmt.Errorf("%w: have %s, publisher emits %s", errspkg.ErrKindMismatch, payloads[i].Kind(), p.kind)
		}
		msg, err := p.builder.Build(partials[i], payloads[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.engine.DeliverBatch(ctx, msgs, opts...)
}

// Typed helpers, one per kind. Each returns ErrKindMismatch when called on a
// publisher bound to a different kind.

func (p *Publisher) PublishText(ctx context.Context, partial message.Partial, text string, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.TextPayload{Text: text}, opts...)
}

func (p *Publisher) PublishChunk(ctx context.Context, partial message.Partial, text string, index *int, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.ChunkPayload{Text: text, Index: index}, opts...)
}

func (p *Publisher) PublishJSON(ctx context.Context, partial message.Partial, data json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.JSONDataPayload{Data: data}, opts...)
}

func (p *Publisher) PublishToolOutput(ctx context.Context, partial message.Partial, tool string, result json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.ToolOutputPayload{Tool: tool, Result: result}, opts...)
}

func (p *Publisher) PublishImage(ctx context.Context, partial message.Partial, url, alt string, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.ImagePayload{URL: url, Alt: alt}, opts...)
}

func (p *Publisher) PublishAudioChunk(ctx context.Context, partial message.Partial, audio message.AudioChunkPayload, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, audio, opts...)
}

func (p *Publisher) PublishProgress(ctx context.Context, partial message.Partial, msg string, progress int, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.ProgressPayload{Message: msg, Progress: progress}, opts...)
}

func (p *Publisher) PublishActionSuggestion(ctx context.Context, partial message.Partial, actionType string, payload json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.ActionSuggestionPayload{ActionType: actionType, Payload: payload}, opts...)
}

func (p *Publisher) PublishSystemMessage(ctx context.Context, partial message.Partial, msg string, level message.Severity, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.SystemMessagePayload{Message: msg, Level: level}, opts...)
}

func (p *Publisher) PublishCard(ctx context.Context, partial message.Partial, card json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.CardPayload{Card: card}, opts...)
}

func (p *Publisher) PublishQuestions(ctx context.Context, partial message.Partial, questions json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.QuestionsPayload{Questions: questions}, opts...)
}

func (p *Publisher) PublishForm(ctx context.Context, partial message.Partial, form json.RawMessage, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.FormPayload{Form: form}, opts...)
}

func (p *Publisher) PublishNodeEvent(ctx context.Context, partial message.Partial, event message.NodeExecutionPayload, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, event, opts...)
}

func (p *Publisher) PublishStateUpdate(ctx context.Context, partial message.Partial, newState message.State, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.StateUpdatePayload{NewState: newState}, opts...)
}

func (p *Publisher) PublishMetadata(ctx context.Context, partial message.Partial, values map[string]any, opts ...DeliverOption) error {
	return p.Publish(ctx, partial, message.MetadataPayload{Values: values}, opts...)
}
