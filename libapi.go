package gravity

import (
	runtimepkg "github.com/gravityai-dev/gravity-server/internal/runtime"
	configpkg "github.com/gravityai-dev/gravity-server/internal/runtime/config"
	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	idspkg "github.com/gravityai-dev/gravity-server/internal/runtime/ids"
	"github.com/gravityai-dev/gravity-server/internal/runtime/jsoncodec"
	loggingpkg "github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	messagepkg "github.com/gravityai-dev/gravity-server/internal/runtime/message"
	transportpkg "github.com/gravityai-dev/gravity-server/transport"
)

type (
	Config = configpkg.Config

	// Envelope and payload model
	Envelope = messagepkg.Envelope
	Message  = messagepkg.Message
	Partial  = messagepkg.Partial
	Builder  = messagepkg.Builder
	Payload  = messagepkg.Payload
	Kind     = messagepkg.Kind
	State    = messagepkg.State
	Severity = messagepkg.Severity

	TextPayload             = messagepkg.TextPayload
	ChunkPayload            = messagepkg.ChunkPayload
	JSONDataPayload         = messagepkg.JSONDataPayload
	ToolOutputPayload       = messagepkg.ToolOutputPayload
	ImagePayload            = messagepkg.ImagePayload
	AudioChunkPayload       = messagepkg.AudioChunkPayload
	ProgressPayload         = messagepkg.ProgressPayload
	ActionSuggestionPayload = messagepkg.ActionSuggestionPayload
	SystemMessagePayload    = messagepkg.SystemMessagePayload
	CardPayload             = messagepkg.CardPayload
	QuestionsPayload        = messagepkg.QuestionsPayload
	FormPayload             = messagepkg.FormPayload
	NodeExecutionPayload    = messagepkg.NodeExecutionPayload
	StateUpdatePayload      = messagepkg.StateUpdatePayload
	MetadataPayload         = messagepkg.MetadataPayload
	NodeStatus              = messagepkg.NodeStatus

	// Core runtime
	Container       = runtimepkg.Container
	ContainerOption = runtimepkg.ContainerOption
	Publisher       = runtimepkg.Publisher
	Engine          = runtimepkg.Engine
	EngineOption    = runtimepkg.EngineOption
	Bus             = runtimepkg.Bus
	Handler         = runtimepkg.Handler
	DeliverOption   = runtimepkg.DeliverOption
	BusMetrics      = runtimepkg.BusMetrics

	// Logging
	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Transport plumbing
	Transport        = transportpkg.Transport
	TransportBuilder = transportpkg.Builder
	Capabilities     = transportpkg.Capabilities
	LogEntry         = transportpkg.LogEntry
	BatchDeliverer   = transportpkg.BatchDeliverer

	// Typed errors
	TransportError     = errspkg.TransportError
	DurableAppendError = errspkg.DurableAppendError
	SerializationError = errspkg.SerializationError
	ValidationError    = errspkg.ValidationError
)

// Message kinds.
const (
	KindText             = messagepkg.KindText
	KindMessageChunk     = messagepkg.KindMessageChunk
	KindJSONData         = messagepkg.KindJSONData
	KindToolOutput       = messagepkg.KindToolOutput
	KindImageResponse    = messagepkg.KindImageResponse
	KindAudioChunk       = messagepkg.KindAudioChunk
	KindProgressUpdate   = messagepkg.KindProgressUpdate
	KindActionSuggestion = messagepkg.KindActionSuggestion
	KindSystemMessage    = messagepkg.KindSystemMessage
	KindCard             = messagepkg.KindCard
	KindQuestions        = messagepkg.KindQuestions
	KindForm             = messagepkg.KindForm
	KindNodeExecution    = messagepkg.KindNodeExecution
	KindStateUpdate      = messagepkg.KindStateUpdate
	KindMetadata         = messagepkg.KindMetadata
)

// Conversation lifecycle states.
const (
	StateIdle       = messagepkg.StateIdle
	StateActive     = messagepkg.StateActive
	StateThinking   = messagepkg.StateThinking
	StateResponding = messagepkg.StateResponding
	StateWaiting    = messagepkg.StateWaiting
	StateComplete   = messagepkg.StateComplete
	StateError      = messagepkg.StateError
	StateCancelled  = messagepkg.StateCancelled
)

// Severity levels for system messages.
const (
	SeverityInfo    = messagepkg.SeverityInfo
	SeverityWarning = messagepkg.SeverityWarning
	SeverityError   = messagepkg.SeverityError
)

// Node execution statuses.
const (
	NodeStarted   = messagepkg.NodeStarted
	NodeCompleted = messagepkg.NodeCompleted
	NodeError     = messagepkg.NodeError
)

// Default channel and stream naming.
const (
	DefaultChannel         = configpkg.DefaultChannel
	DefaultStreamNamespace = configpkg.DefaultStreamNamespace
)

var (
	// Container construction and the process-wide default
	NewContainer = runtimepkg.NewContainer
	Default      = runtimepkg.Default
	PublisherFor = runtimepkg.PublisherFor
	ResetDefault = runtimepkg.ResetDefault

	WithLogger            = runtimepkg.WithLogger
	WithMetrics           = runtimepkg.WithMetrics
	WithTransport         = runtimepkg.WithTransport
	WithTransportRegistry = runtimepkg.WithTransportRegistry

	// Delivery
	NewPublisher      = runtimepkg.NewPublisher
	NewEngine         = runtimepkg.NewEngine
	NewBus            = runtimepkg.NewBus
	WithChannel       = runtimepkg.WithChannel
	WithEngineMetrics = runtimepkg.WithEngineMetrics
	WithoutDurableLog = runtimepkg.WithoutDurableLog
	NewBusMetrics     = runtimepkg.NewBusMetrics

	// Envelope construction
	NewBuilder       = messagepkg.NewBuilder
	WithDefaultState = messagepkg.WithDefaultState
	WithClock        = messagepkg.WithClock
	Kinds            = messagepkg.Kinds
	EncodeMessage    = messagepkg.Encode
	DecodeMessage    = messagepkg.Decode

	// Config validation
	ValidateConfig = configpkg.ValidateConfig

	// Transport registry. Import individual transports via:
	//   _ "github.com/gravityai-dev/gravity-server/transport/redis"
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities

	// JSON codec aliases
	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	// Logging
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewNopLogger         = loggingpkg.NewNopLogger

	// Identity
	NewMessageID = idspkg.NewMessageID
	NewToken     = idspkg.NewToken

	// Sentinel errors
	ErrMissingCorrelation = errspkg.ErrMissingCorrelation
	ErrNotConfigured      = errspkg.ErrNotConfigured
	ErrPayloadRequired    = errspkg.ErrPayloadRequired
	ErrHandlerRequired    = errspkg.ErrHandlerRequired
	ErrChannelRequired    = errspkg.ErrChannelRequired
	ErrTransportRequired  = errspkg.ErrTransportRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrKindMismatch       = errspkg.ErrKindMismatch
	ErrInvalidState       = errspkg.ErrInvalidState
	ErrPoolClosed         = errspkg.ErrPoolClosed
)
