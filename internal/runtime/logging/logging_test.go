package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogServiceLoggerWritesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogServiceLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	log.Info("published", LogFields{"channel": "gravity:output"})
	assert.Contains(t, buf.String(), "published")
	assert.Contains(t, buf.String(), "gravity:output")

	buf.Reset()
	log.Error("broadcast failed", errors.New("boom"), LogFields{"channel": "c"})
	assert.Contains(t, buf.String(), "boom")
}

func TestWithReturnsEnrichedLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogServiceLogger(slog.New(slog.NewTextHandler(buf, nil)))

	enriched := log.With(LogFields{"provider": "tts"})
	enriched.Info("ready", nil)
	assert.Contains(t, buf.String(), "provider=tts")
}

func TestWatermillAdapterRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewSlogServiceLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter := NewWatermillAdapter(log)
	require.NotNil(t, adapter)

	adapter.Info("subscribed", map[string]any{"topic": "t1"})
	assert.Contains(t, buf.String(), "subscribed")

	adapter.Trace("trace goes to debug", nil)
	assert.Contains(t, buf.String(), "trace goes to debug")
}

func TestNopLoggerDoesNothing(t *testing.T) {
	log := NewNopLogger()
	log.Debug("x", nil)
	log.Info("x", nil)
	log.Error("x", errors.New("y"), nil)
	assert.NotNil(t, log.With(LogFields{"k": "v"}))
}

func TestNilSlogLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
}
