package gravity

import (
	"bytes"
	"errors"
	"testing"
)

func TestPublisherExportsPropagateErrors(t *testing.T) {
	if _, err := NewPublisher(KindText, nil, NewBuilder("p")); !errors.Is(err, ErrTransportRequired) {
		t.Fatalf("expected transport required error, got %v", err)
	}
	if _, err := NewPublisher("bogus", nil, nil); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestDefaultExportRequiresConfig(t *testing.T) {
	ResetDefault()
	t.Cleanup(ResetDefault)

	if _, err := Default(t.Context(), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestMessageCodecExports(t *testing.T) {
	msg, err := NewBuilder("provider-1").Build(Partial{
		ChatID:         "chat-1",
		ConversationID: "conv-1",
		UserID:         "user-1",
	}, TextPayload{Text: "hello"})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	wire, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeMessage(wire)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Kind() != KindText {
		t.Fatalf("expected %q, got %q", KindText, decoded.Kind())
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, payload); err != nil {
		t.Fatalf("encode alias failed: %v", err)
	}
	if err := Decode(&buf, &payload); err != nil {
		t.Fatalf("decode alias failed: %v", err)
	}
}

func TestKindExports(t *testing.T) {
	if len(Kinds()) != 15 {
		t.Fatalf("expected 15 kinds, got %d", len(Kinds()))
	}
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Fatalf("kind %q reports invalid", k)
		}
	}
}

func TestConfigValidationExport(t *testing.T) {
	if err := ValidateConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg := &Config{Transport: "channel", ProviderID: "provider-1"}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestIdentityExports(t *testing.T) {
	if NewMessageID() == NewMessageID() {
		t.Fatal("expected unique message ids")
	}
	if NewToken() == NewToken() {
		t.Fatal("expected unique tokens")
	}
}

func TestTransportRegistryExports(t *testing.T) {
	if DefaultTransportRegistry == nil {
		t.Fatal("expected default registry")
	}
	if _, ok := GetCapabilities("definitely-not-registered"); ok {
		t.Fatal("expected unknown transport to report no capabilities")
	}
}
