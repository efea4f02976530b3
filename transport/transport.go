// Package transport defines the narrow contract the messaging core needs from
// a pub/sub-and-log backend. Each backend (redis, nats, channel) lives in its
// own sub-package and registers itself with the transport registry.
package transport

import (
	"context"
	"time"

	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
)

// LogEntry is one durable-log record. Channel, ConversationID, ProviderID, and
// Timestamp are stored as entry fields outside the serialized payload so a
// consumer can filter the stream without deserializing every entry.
type LogEntry struct {
	Channel        string
	ConversationID string
	ProviderID     string
	Timestamp      time.Time
	Payload        []byte
}

// Handler receives inbound broadcast payloads for a subscribed channel.
type Handler func(channel string, payload []byte)

// Transport is the external collaborator the delivery engine and event bus
// talk to. Implementations must be safe for concurrent use.
type Transport interface {
	// Publish broadcasts payload on the channel, fire-and-forget.
	Publish(ctx context.Context, channel string, payload []byte) error

	// AppendToLog appends an entry to the durable stream identified by
	// streamKey and returns the assigned entry id.
	AppendToLog(ctx context.Context, streamKey string, entry LogEntry) (string, error)

	// Subscribe starts delivering broadcasts on the channel to the handler
	// installed with SetHandler. Called once per channel by the event bus.
	Subscribe(ctx context.Context, channel string) error

	// Unsubscribe stops delivery for the channel.
	Unsubscribe(ctx context.Context, channel string) error

	// SetHandler installs the inbound message callback. Must be called before
	// the first Subscribe.
	SetHandler(h Handler)

	// Close releases every connection held by the transport. Idempotent.
	Close() error
}

// BatchEntry pairs one broadcast with its durable-log record. An empty
// StreamKey skips the durable append for that entry.
type BatchEntry struct {
	Channel   string
	StreamKey string
	Entry     LogEntry
}

// BatchDeliverer is an optional capability: backends with a pipelined wire
// protocol deliver a whole batch in one round trip. A failure anywhere in the
// pipeline aborts the remainder and surfaces as a single error; there is no
// per-item partial success reporting.
type BatchDeliverer interface {
	DeliverBatch(ctx context.Context, entries []BatchEntry) error
}

// Builder is the function signature for creating a transport from config.
// Each transport package provides a Builder that can be registered.
type Builder func(ctx context.Context, cfg Config, logger logging.ServiceLogger) (Transport, error)

// Config provides the configuration values needed by transports. The
// interface lets each backend read only the keys it cares about without
// depending on the full config package.
type Config interface {
	GetTransport() string

	// Redis
	GetHost() string
	GetPort() int
	GetUsername() string
	GetPassword() string
	GetDB() int
	GetTLS() bool

	// NATS
	GetNATSURL() string

	// Durable log
	GetStreamMaxLen() int64

	// Connection retry tuning
	GetRetryMaxRetries() int
	GetRetryInitialInterval() time.Duration
	GetRetryMaxInterval() time.Duration
}
