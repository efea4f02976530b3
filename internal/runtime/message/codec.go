package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/jsoncodec"
)

// Wire format: one UTF-8 JSON object with the envelope fields flattened
// alongside the kind-specific payload fields, discriminated by "type".
// Envelope keys and payload keys never collide; the decode switch below is
// exhaustive over the closed Kind set.

type wireEnvelope struct {
	ID             string         `json:"id"`
	ChatID         string         `json:"chatId"`
	ConversationID string         `json:"conversationId"`
	UserID         string         `json:"userId"`
	ProviderID     string         `json:"providerId,omitempty"`
	Timestamp      string         `json:"timestamp"`
	State          State          `json:"state"`
	Type           Kind           `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type wireHead struct {
	ID             string          `json:"id"`
	ChatID         string          `json:"chatId"`
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	ProviderID     string          `json:"providerId"`
	Timestamp      json.RawMessage `json:"timestamp"`
	State          State           `json:"state"`
	Type           Kind            `json:"type"`
	Metadata       map[string]any  `json:"metadata"`
}

// Encode serializes a message to its wire form. Failures are reported as
// SerializationError and are fatal to the single publish call only.
func Encode(m Message) ([]byte, error) {
	if m.Payload == nil {
		return nil, errspkg.ErrPayloadRequired
	}

	head, err := jsoncodec.Marshal(wireEnvelope{
		ID:             m.ID,
		ChatID:         m.ChatID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		ProviderID:     m.ProviderID,
		Timestamp:      m.Timestamp.UTC().Format(time.RFC3339Nano),
		State:          m.State,
		Type:           m.Payload.Kind(),
		Metadata:       m.Metadata,
	})
	if err != nil {
		return nil, &errspkg.SerializationError{Kind: string(m.Payload.Kind()), Err: err}
	}

	body, err := jsoncodec.Marshal(m.Payload)
	if err != nil {
		return nil, &errspkg.SerializationError{Kind: string(m.Payload.Kind()), Err: err}
	}

	return splice(head, body), nil
}

// splice merges two JSON objects byte-for-byte, so payload fields keep the
// exact encoding jsoncodec produced for them.
func splice(head, body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) <= 2 { // "{}"
		return head
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out
}

// Decode parses a wire payload back into a Message. Unknown discriminants and
// malformed JSON are errors; the event bus logs and drops such payloads.
func Decode(data []byte) (Message, error) {
	var head wireHead
	if err := jsoncodec.Unmarshal(data, &head); err != nil {
		return Message{}, fmt.Errorf("gravity: malformed wire payload: %w", err)
	}

	ts, err := parseTimestamp(head.Timestamp)
	if err != nil {
		return Message{}, err
	}

	payload, err := decodePayload(head.Type, data)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Envelope: Envelope{
			ID:             head.ID,
			ChatID:         head.ChatID,
			ConversationID: head.ConversationID,
			UserID:         head.UserID,
			ProviderID:     head.ProviderID,
			Timestamp:      ts,
			State:          head.State,
			Metadata:       head.Metadata,
		},
		Payload: payload,
	}, nil
}

func decodePayload(kind Kind, data []byte) (Payload, error) {
	switch kind {
	case KindText:
		return unmarshalPayload[TextPayload](data)
	case KindMessageChunk:
		return unmarshalPayload[ChunkPayload](data)
	case KindJSONData:
		return unmarshalPayload[JSONDataPayload](data)
	case KindToolOutput:
		return unmarshalPayload[ToolOutputPayload](data)
	case KindImageResponse:
		return unmarshalPayload[ImagePayload](data)
	case KindAudioChunk:
		return unmarshalPayload[AudioChunkPayload](data)
	case KindProgressUpdate:
		return unmarshalPayload[ProgressPayload](data)
	case KindActionSuggestion:
		return unmarshalPayload[ActionSuggestionPayload](data)
	case KindSystemMessage:
		return unmarshalPayload[SystemMessagePayload](data)
	case KindCard:
		return unmarshalPayload[CardPayload](data)
	case KindQuestions:
		return unmarshalPayload[QuestionsPayload](data)
	case KindForm:
		return unmarshalPayload[FormPayload](data)
	case KindNodeExecution:
		return unmarshalPayload[NodeExecutionPayload](data)
	case KindStateUpdate:
		return unmarshalPayload[StateUpdatePayload](data)
	case KindMetadata:
		return unmarshalPayload[MetadataPayload](data)
	case "":
		return nil, fmt.Errorf("gravity: wire payload is missing the type discriminant")
	default:
		return nil, fmt.Errorf("gravity: unknown message kind %q", kind)
	}
}

func unmarshalPayload[T Payload](data []byte) (Payload, error) {
	var p T
	if err := jsoncodec.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("gravity: malformed %s payload: %w", p.Kind(), err)
	}
	return p, nil
}

// parseTimestamp accepts the canonical RFC 3339 string or, at the decode
// boundary only, a numeric epoch in seconds or milliseconds. Producers on the
// old bus were inconsistent about which they sent; everything inside this core
// is a time.Time in UTC.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := jsoncodec.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("gravity: malformed timestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("gravity: malformed timestamp %q: %w", s, err)
		}
		return ts.UTC(), nil
	}

	epoch, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("gravity: malformed timestamp %s: %w", raw, err)
	}
	// Values this large can only be milliseconds.
	if epoch > 1e11 {
		return time.UnixMilli(int64(epoch)).UTC(), nil
	}
	return time.Unix(int64(epoch), 0).UTC(), nil
}
