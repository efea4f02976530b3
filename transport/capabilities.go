package transport

// Capabilities describes the features supported by a transport backend.
// Use this to introspect what operations are available at runtime.
type Capabilities struct {
	// Name is the human-readable name of the transport.
	Name string

	// SupportsDurableLog indicates the backend has a replayable append-only
	// log behind AppendToLog. When false, AppendToLog is an in-memory record
	// at best and replay after restart is not available.
	SupportsDurableLog bool

	// SupportsBatching indicates the backend implements BatchDeliverer and
	// can pipeline a whole batch in one round trip.
	SupportsBatching bool

	// SupportsOrdering indicates broadcasts published sequentially on one
	// connection arrive in send order.
	SupportsOrdering bool

	// Version is the backend/driver version, when known.
	Version string
}

// Predefined capability sets for the built-in transports.
var (
	// RedisCapabilities for the Redis streams + pub/sub transport.
	RedisCapabilities = Capabilities{
		Name:               "redis",
		SupportsDurableLog: true,
		SupportsBatching:   true,
		SupportsOrdering:   true,
	}

	// NATSCapabilities for the NATS core + JetStream transport.
	NATSCapabilities = Capabilities{
		Name:               "nats",
		SupportsDurableLog: true,
		SupportsBatching:   false,
		SupportsOrdering:   true,
	}

	// ChannelCapabilities for the in-memory transport.
	ChannelCapabilities = Capabilities{
		Name:               "channel",
		SupportsDurableLog: false,
		SupportsBatching:   false,
		SupportsOrdering:   true,
	}
)
