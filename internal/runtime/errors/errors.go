// Package errors defines the error taxonomy shared by the gravity messaging core.
//
// Construction-time errors (missing correlation ids, invalid payloads) surface
// synchronously before any I/O. Transport errors surface once the connection
// layer has exhausted its bounded retries. Durable-append failures are the one
// deliberate soft spot: delivery logs them and falls back to broadcast-only.
package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	// ErrMissingCorrelation is returned when an envelope is built without all of
	// chatId, conversationId, and userId. Always the caller's fault, never retried.
	ErrMissingCorrelation = sterrors.New("gravity: chatId, conversationId, and userId are required")

	// ErrNotConfigured is returned when the process-wide container is requested
	// before connection parameters were supplied.
	ErrNotConfigured = sterrors.New("gravity: connection parameters were never supplied")

	ErrPayloadRequired   = sterrors.New("gravity: message payload is required")
	ErrHandlerRequired   = sterrors.New("gravity: handler function is required")
	ErrChannelRequired   = sterrors.New("gravity: channel name is required")
	ErrTransportRequired = sterrors.New("gravity: transport is required")
	ErrConfigRequired    = sterrors.New("gravity: config is required")
	ErrKindMismatch      = sterrors.New("gravity: payload kind does not match publisher kind")
	ErrInvalidState      = sterrors.New("gravity: unknown conversation state")
	ErrPoolClosed        = sterrors.New("gravity: connection pool is closed")
)

// TransportError wraps a network or connection failure after the connection
// layer has exhausted its bounded retries.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gravity: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DurableAppendError records a failed append to the durable log. It is never
// returned from a publish call: the delivery engine logs it and falls back to
// broadcast-only delivery for that message.
type DurableAppendError struct {
	Stream string
	Err    error
}

func (e *DurableAppendError) Error() string {
	return fmt.Sprintf("gravity: durable append to %s failed: %v", e.Stream, e.Err)
}

func (e *DurableAppendError) Unwrap() error { return e.Err }

// SerializationError wraps a payload that could not be encoded to the wire
// format. Fatal to that single publish call, never retried.
type SerializationError struct {
	Kind string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("gravity: cannot serialize %s payload: %v", e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// ValidationError describes a payload field that failed construction-time
// validation, such as a progress percentage outside 0-100.
type ValidationError struct {
	Kind  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gravity: invalid %s payload: %s %s", e.Kind, e.Field, e.Msg)
}
