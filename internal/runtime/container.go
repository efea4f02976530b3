package runtime

import (
	"context"
	"fmt"
	"sync"

	configpkg "github.com/gravityai-dev/gravity-server/internal/runtime/config"
	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/internal/runtime/message"
	"github.com/gravityai-dev/gravity-server/transport"
)

// Container wires the messaging core: transport, delivery engine, event bus,
// and the per-kind publisher cache. It replaces the old module-level
// singletons with a value constructed once at process start and passed by
// reference; the process-wide Default below exists for applications that
// still want exactly-one-per-process behavior, with a test-only reset hook.
type Container struct {
	cfg     *configpkg.Config
	logger  logging.ServiceLogger
	metrics *BusMetrics

	transport transport.Transport
	engine    *Engine
	bus       *Bus
	builder   *message.Builder

	mu         sync.Mutex
	publishers map[message.Kind]*Publisher
}

// ContainerOption customizes container construction.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	logger    logging.ServiceLogger
	metrics   *BusMetrics
	transport transport.Transport
	registry  *transport.Registry
}

// WithLogger attaches a logger. Without it the container logs nowhere.
func WithLogger(log logging.ServiceLogger) ContainerOption {
	return func(o *containerOptions) { o.logger = log }
}

// WithMetrics attaches delivery and dispatch metrics.
func WithMetrics(m *BusMetrics) ContainerOption {
	return func(o *containerOptions) { o.metrics = m }
}

// WithTransport injects a pre-built transport, bypassing the registry.
// Intended for tests.
func WithTransport(tr transport.Transport) ContainerOption {
	return func(o *containerOptions) { o.transport = tr }
}

// WithTransportRegistry selects a registry other than the default.
func WithTransportRegistry(r *transport.Registry) ContainerOption {
	return func(o *containerOptions) { o.registry = r }
}

// NewContainer validates the config, builds the selected transport, and wires
// the engine and event bus around it.
func NewContainer(ctx context.Context, cfg *configpkg.Config, opts ...ContainerOption) (*Container, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gravity: invalid config: %w", err)
	}

	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}

	tr := o.transport
	if tr == nil {
		registry := o.registry
		if registry == nil {
			registry = transport.DefaultRegistry
		}
		built, err := registry.Build(ctx, cfg, o.logger)
		if err != nil {
			return nil, err
		}
		tr = built
	}

	engineOpts := []EngineOption{WithEngineMetrics(o.metrics)}
	if cfg.DisableDurableLog {
		engineOpts = append(engineOpts, WithoutDurableLog())
	}
	engine := NewEngine(tr, o.logger, cfg.ResolvedChannel(), cfg.ResolvedStreamNamespace(), engineOpts...)

	return &Container{
		cfg:        cfg,
		logger:     o.logger,
		metrics:    o.metrics,
		transport:  tr,
		engine:     engine,
		bus:        NewBus(tr, o.logger, o.metrics),
		builder:    message.NewBuilder(cfg.ProviderID),
		publishers: make(map[message.Kind]*Publisher),
	}, nil
}

// Publisher returns the cached publisher for the kind, constructing it on
// first use. One instance exists per kind per container so pooled transport
// state is reused across an application's lifetime.
func (c *Container) Publisher(kind message.Kind) (*Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[kind]; ok {
		return p, nil
	}
	p, err := NewPublisher(kind, c.engine, c.builder)
	if err != nil {
		return nil, err
	}
	c.publishers[kind] = p
	return p, nil
}

// Engine returns the delivery engine.
func (c *Container) Engine() *Engine { return c.engine }

// Bus returns the event bus for subscribing to inbound broadcasts.
func (c *Container) Bus() *Bus { return c.bus }

// Config returns the container's configuration.
func (c *Container) Config() *configpkg.Config { return c.cfg }

// Close releases the transport and every pooled connection.
func (c *Container) Close() error {
	return c.transport.Close()
}

var (
	defaultMu        sync.Mutex
	defaultContainer *Container
)

// Default returns the process-wide container. The first caller must supply a
// config (and may supply options); it fails with ErrNotConfigured otherwise.
// Subsequent callers get the cached container and their arguments are
// ignored, by design: the cache guarantees single-instance reuse of pooled
// connections for the process lifetime.
func Default(ctx context.Context, cfg *configpkg.Config, opts ...ContainerOption) (*Container, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultContainer != nil {
		return defaultContainer, nil
	}
	if cfg == nil {
		return nil, errspkg.ErrNotConfigured
	}
	c, err := NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	defaultContainer = c
	return c, nil
}

// PublisherFor returns the process-wide publisher for a kind. See Default for
// the first-call configuration rule.
func PublisherFor(ctx context.Context, kind message.Kind, cfg *configpkg.Config, opts ...ContainerOption) (*Publisher, error) {
	c, err := Default(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Publisher(kind)
}

// ResetDefault closes and clears the process-wide container. Test hook only.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultContainer != nil {
		_ = defaultContainer.Close()
		defaultContainer = nil
	}
}
