package errors

import (
	sterrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportErrorUnwrap(t *testing.T) {
	cause := sterrors.New("connection refused")
	err := &TransportError{Op: "publish", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "publish")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDurableAppendErrorUnwrap(t *testing.T) {
	cause := sterrors.New("stream unavailable")
	err := &DurableAppendError{Stream: "gravity:stream:output", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "gravity:stream:output")
}

func TestSerializationError(t *testing.T) {
	cause := sterrors.New("unsupported value")
	err := &SerializationError{Kind: "JsonData", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "JsonData")
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Kind: "ProgressUpdate", Field: "progress", Msg: "must be between 0 and 100"}
	assert.Contains(t, err.Error(), "ProgressUpdate")
	assert.Contains(t, err.Error(), "progress")
}
