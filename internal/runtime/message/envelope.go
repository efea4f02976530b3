// Package message defines the envelope and the closed set of payload kinds
// carried on the gravity realtime bus. Every message a producer emits is an
// Envelope plus exactly one Payload variant; consumers select a rendering path
// from the wire discriminant alone.
//
// Envelopes are immutable once built: the Builder validates and fills defaults
// at construction time, and publishing never mutates a constructed message.
package message

import (
	"fmt"
	"time"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/ids"
)

// State is a conversation-lifecycle tag carried on every envelope. It is not a
// message-delivery state; the bus attaches no meaning to it beyond transport.
type State string

const (
	StateIdle       State = "IDLE"
	StateActive     State = "ACTIVE"
	StateThinking   State = "THINKING"
	StateResponding State = "RESPONDING"
	StateWaiting    State = "WAITING"
	StateComplete   State = "COMPLETE"
	StateError      State = "ERROR"
	StateCancelled  State = "CANCELLED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateActive, StateThinking, StateResponding,
		StateWaiting, StateComplete, StateError, StateCancelled:
		return true
	}
	return false
}

// Envelope is the common wrapper attached to every message regardless of kind.
type Envelope struct {
	// ID uniquely identifies the message. Auto-generated when absent.
	ID string

	// ChatID, ConversationID, and UserID tie the message to a conversation
	// context. All three are required; they are never defaulted.
	ChatID         string
	ConversationID string
	UserID         string

	// ProviderID identifies which producer authored the message.
	ProviderID string

	// Timestamp is the moment the message was constructed, UTC. The wire
	// representation is RFC 3339; numeric epoch millis are accepted on decode.
	Timestamp time.Time

	// State is the conversation lifecycle tag.
	State State

	// Metadata is an open key/value bag, optional.
	Metadata map[string]any
}

// Message pairs an envelope with its payload variant.
type Message struct {
	Envelope
	Payload Payload
}

// Kind returns the discriminant of the message's payload.
func (m Message) Kind() Kind {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Kind()
}

// Partial holds the caller-supplied envelope fields handed to Builder.Build.
// Zero-valued fields other than the correlation ids are filled with defaults.
type Partial struct {
	ID             string
	ChatID         string
	ConversationID string
	UserID         string
	ProviderID     string
	Timestamp      time.Time
	State          State
	Metadata       map[string]any
}

// Builder constructs envelopes with provider-level defaults applied. Build is
// pure: it performs no I/O and never mutates its inputs.
type Builder struct {
	providerID   string
	defaultState State
	now          func() time.Time
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithDefaultState overrides the baseline lifecycle state for envelopes that
// do not carry one. The baseline is ACTIVE.
func WithDefaultState(s State) BuilderOption {
	return func(b *Builder) { b.defaultState = s }
}

// WithClock overrides the time source for generated timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder whose envelopes default to the given provider
// identity.
func NewBuilder(providerID string, opts ...BuilderOption) *Builder {
	b := &Builder{
		providerID:   providerID,
		defaultState: StateActive,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles an immutable Message from the partial envelope and payload.
// It fails with ErrMissingCorrelation if any of chatId, conversationId, or
// userId is absent, and with a validation error if the payload or state is
// malformed. No I/O happens here.
func (b *Builder) Build(p Partial, payload Payload) (Message, error) {
	if missing := missingCorrelation(p); len(missing) > 0 {
		return Message{}, fmt.Errorf("%w (missing %v)", errspkg.ErrMissingCorrelation, missing)
	}
	if payload == nil {
		return Message{}, errspkg.ErrPayloadRequired
	}
	if err := payload.validate(); err != nil {
		return Message{}, err
	}

	env := Envelope{
		ID:             p.ID,
		ChatID:         p.ChatID,
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		ProviderID:     p.ProviderID,
		Timestamp:      p.Timestamp,
		State:          p.State,
		Metadata:       cloneMetadata(p.Metadata),
	}
	if env.ID == "" {
		env.ID = ids.NewMessageID()
	}
	if env.ProviderID == "" {
		env.ProviderID = b.providerID
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = b.now().UTC()
	} else {
		env.Timestamp = env.Timestamp.UTC()
	}
	if env.State == "" {
		env.State = b.defaultState
	}
	if !env.State.Valid() {
		return Message{}, fmt.Errorf("%w: %q", errspkg.ErrInvalidState, env.State)
	}

	return Message{Envelope: env, Payload: payload}, nil
}

func missingCorrelation(p Partial) []string {
	var missing []string
	if p.ChatID == "" {
		missing = append(missing, "chatId")
	}
	if p.ConversationID == "" {
		missing = append(missing, "conversationId")
	}
	if p.UserID == "" {
		missing = append(missing, "userId")
	}
	return missing
}

// cloneMetadata copies the caller's bag so the built envelope cannot be
// mutated through the original map.
func cloneMetadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
