// Package ids generates the identifiers used across the messaging core.
//
// Envelope identities are random v4 UUIDs so producers in different processes
// can generate them without coordination. Durable-log entries and subscription
// tokens use ULIDs so they sort by creation time.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageID returns a random v4 UUID for use as an envelope identity.
func NewMessageID() string {
	return uuid.NewString()
}

// NewToken returns a time-sortable ULID encoded as a 26-character string. Used
// for durable-log entry ids and subscription tokens.
func NewToken() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}
