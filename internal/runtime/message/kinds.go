package message

import (
	"encoding/json"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/jsoncodec"
)

// Kind is the discriminant naming which payload variant an envelope carries.
// It maps 1:1 to a rendering contract on the consumer side.
type Kind string

const (
	KindText             Kind = "Text"
	KindMessageChunk     Kind = "MessageChunk"
	KindJSONData         Kind = "JsonData"
	KindToolOutput       Kind = "ToolOutput"
	KindImageResponse    Kind = "ImageResponse"
	KindAudioChunk       Kind = "AudioChunk"
	KindProgressUpdate   Kind = "ProgressUpdate"
	KindActionSuggestion Kind = "ActionSuggestion"
	KindSystemMessage    Kind = "SystemMessage"
	KindCard             Kind = "Card"
	KindQuestions        Kind = "Questions"
	KindForm             Kind = "Form"
	KindNodeExecution    Kind = "NodeExecutionEvent"
	KindStateUpdate      Kind = "StateUpdate"
	KindMetadata         Kind = "Metadata"
)

// Kinds lists every known discriminant.
func Kinds() []Kind {
	return []Kind{
		KindText, KindMessageChunk, KindJSONData, KindToolOutput,
		KindImageResponse, KindAudioChunk, KindProgressUpdate,
		KindActionSuggestion, KindSystemMessage, KindCard, KindQuestions,
		KindForm, KindNodeExecution, KindStateUpdate, KindMetadata,
	}
}

// Valid reports whether k names a known payload variant.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindMessageChunk, KindJSONData, KindToolOutput,
		KindImageResponse, KindAudioChunk, KindProgressUpdate,
		KindActionSuggestion, KindSystemMessage, KindCard, KindQuestions,
		KindForm, KindNodeExecution, KindStateUpdate, KindMetadata:
		return true
	}
	return false
}

// Payload is the closed sum of message variants. The unexported validate
// method keeps the set closed: only this package can add variants, so the
// decode switch in codec.go stays exhaustive.
type Payload interface {
	Kind() Kind
	validate() error
}

// Severity levels for system notices.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NodeStatus is the lifecycle state of a workflow node execution.
type NodeStatus string

const (
	NodeStarted   NodeStatus = "STARTED"
	NodeCompleted NodeStatus = "COMPLETED"
	NodeError     NodeStatus = "ERROR"
)

// TextPayload carries a complete plain-text response.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) Kind() Kind { return KindText }

func (p TextPayload) validate() error { return nil }

// ChunkPayload carries one streaming text fragment. Index, when set, lets the
// consumer reorder fragments that arrived out of sequence.
type ChunkPayload struct {
	Text  string `json:"text"`
	Index *int   `json:"index,omitempty"`
}

func (ChunkPayload) Kind() Kind { return KindMessageChunk }

func (p ChunkPayload) validate() error {
	if p.Index != nil && *p.Index < 0 {
		return &errspkg.ValidationError{Kind: string(KindMessageChunk), Field: "index", Msg: "cannot be negative"}
	}
	return nil
}

// JSONDataPayload carries an arbitrary structured JSON blob.
type JSONDataPayload struct {
	Data json.RawMessage `json:"data"`
}

func (JSONDataPayload) Kind() Kind { return KindJSONData }

func (p JSONDataPayload) validate() error { return validateRawJSON(KindJSONData, "data", p.Data) }

// ToolOutputPayload carries the result of a tool execution.
type ToolOutputPayload struct {
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
}

func (ToolOutputPayload) Kind() Kind { return KindToolOutput }

func (p ToolOutputPayload) validate() error {
	if p.Tool == "" {
		return &errspkg.ValidationError{Kind: string(KindToolOutput), Field: "tool", Msg: "is required"}
	}
	return validateRawJSON(KindToolOutput, "result", p.Result)
}

// ImagePayload references a rendered image.
type ImagePayload struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

func (ImagePayload) Kind() Kind { return KindImageResponse }

func (p ImagePayload) validate() error {
	if p.URL == "" {
		return &errspkg.ValidationError{Kind: string(KindImageResponse), Field: "url", Msg: "is required"}
	}
	return nil
}

// AudioChunkPayload carries one base64-encoded audio fragment along with a
// back-reference to the text it voices and the kind of message that text came
// from.
type AudioChunkPayload struct {
	AudioData     string  `json:"audioData"`
	Format        string  `json:"format"`
	Duration      float64 `json:"duration,omitempty"`
	TextReference string  `json:"textReference,omitempty"`
	SourceType    Kind    `json:"sourceType,omitempty"`
}

func (AudioChunkPayload) Kind() Kind { return KindAudioChunk }

func (p AudioChunkPayload) validate() error {
	if p.AudioData == "" {
		return &errspkg.ValidationError{Kind: string(KindAudioChunk), Field: "audioData", Msg: "is required"}
	}
	if p.Format == "" {
		return &errspkg.ValidationError{Kind: string(KindAudioChunk), Field: "format", Msg: "is required"}
	}
	if p.SourceType != "" && !p.SourceType.Valid() {
		return &errspkg.ValidationError{Kind: string(KindAudioChunk), Field: "sourceType", Msg: "is not a known kind"}
	}
	return nil
}

// ProgressPayload reports long-running operation progress as a 0-100 percentage.
type ProgressPayload struct {
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

func (ProgressPayload) Kind() Kind { return KindProgressUpdate }

func (p ProgressPayload) validate() error {
	if p.Progress < 0 || p.Progress > 100 {
		return &errspkg.ValidationError{Kind: string(KindProgressUpdate), Field: "progress", Msg: "must be between 0 and 100"}
	}
	return nil
}

// ActionSuggestionPayload proposes a follow-up action the consumer may offer.
type ActionSuggestionPayload struct {
	ActionType string          `json:"actionType"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (ActionSuggestionPayload) Kind() Kind { return KindActionSuggestion }

func (p ActionSuggestionPayload) validate() error {
	if p.ActionType == "" {
		return &errspkg.ValidationError{Kind: string(KindActionSuggestion), Field: "actionType", Msg: "is required"}
	}
	if len(p.Payload) == 0 {
		return nil
	}
	return validateRawJSON(KindActionSuggestion, "payload", p.Payload)
}

// SystemMessagePayload is an operator-visible notice with a severity level.
type SystemMessagePayload struct {
	Message string   `json:"message"`
	Level   Severity `json:"level"`
}

func (SystemMessagePayload) Kind() Kind { return KindSystemMessage }

func (p SystemMessagePayload) validate() error {
	switch p.Level {
	case SeverityInfo, SeverityWarning, SeverityError:
		return nil
	}
	return &errspkg.ValidationError{Kind: string(KindSystemMessage), Field: "level", Msg: "must be info, warning, or error"}
}

// CardPayload carries a consumer-defined card UI spec. The structure is
// intentionally opaque: it is validated as JSON and nothing more.
type CardPayload struct {
	Card json.RawMessage `json:"card"`
}

func (CardPayload) Kind() Kind { return KindCard }

func (p CardPayload) validate() error { return validateRawJSON(KindCard, "card", p.Card) }

// QuestionsPayload carries a consumer-defined question set UI spec, opaque JSON.
type QuestionsPayload struct {
	Questions json.RawMessage `json:"questions"`
}

func (QuestionsPayload) Kind() Kind { return KindQuestions }

func (p QuestionsPayload) validate() error {
	return validateRawJSON(KindQuestions, "questions", p.Questions)
}

// FormPayload carries a consumer-defined form UI spec, opaque JSON.
type FormPayload struct {
	Form json.RawMessage `json:"form"`
}

func (FormPayload) Kind() Kind { return KindForm }

func (p FormPayload) validate() error { return validateRawJSON(KindForm, "form", p.Form) }

// NodeExecutionPayload traces one workflow node execution.
type NodeExecutionPayload struct {
	WorkflowID  string          `json:"workflowId"`
	ExecutionID string          `json:"executionId"`
	NodeID      string          `json:"nodeId"`
	NodeType    string          `json:"nodeType,omitempty"`
	Status      NodeStatus      `json:"status"`
	DurationMs  int64           `json:"durationMs,omitempty"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func (NodeExecutionPayload) Kind() Kind { return KindNodeExecution }

func (p NodeExecutionPayload) validate() error {
	if p.WorkflowID == "" || p.ExecutionID == "" || p.NodeID == "" {
		return &errspkg.ValidationError{Kind: string(KindNodeExecution), Field: "workflowId/executionId/nodeId", Msg: "are required"}
	}
	switch p.Status {
	case NodeStarted, NodeCompleted, NodeError:
	default:
		return &errspkg.ValidationError{Kind: string(KindNodeExecution), Field: "status", Msg: "must be STARTED, COMPLETED, or ERROR"}
	}
	if len(p.Outputs) > 0 {
		return validateRawJSON(KindNodeExecution, "outputs", p.Outputs)
	}
	return nil
}

// StateUpdatePayload broadcasts a conversation lifecycle transition.
type StateUpdatePayload struct {
	NewState State `json:"newState"`
}

func (StateUpdatePayload) Kind() Kind { return KindStateUpdate }

func (p StateUpdatePayload) validate() error {
	if !p.NewState.Valid() {
		return &errspkg.ValidationError{Kind: string(KindStateUpdate), Field: "newState", Msg: "is not a known state"}
	}
	return nil
}

// MetadataPayload broadcasts an open key/value bag with no rendering contract.
type MetadataPayload struct {
	Values map[string]any `json:"values"`
}

func (MetadataPayload) Kind() Kind { return KindMetadata }

func (p MetadataPayload) validate() error {
	if len(p.Values) == 0 {
		return &errspkg.ValidationError{Kind: string(KindMetadata), Field: "values", Msg: "is required"}
	}
	return nil
}

func validateRawJSON(kind Kind, field string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return &errspkg.ValidationError{Kind: string(kind), Field: field, Msg: "is required"}
	}
	if !jsoncodec.Valid(raw) {
		return &errspkg.ValidationError{Kind: string(kind), Field: field, Msg: "is not well-formed JSON"}
	}
	return nil
}
