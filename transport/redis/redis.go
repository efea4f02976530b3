// Package redis provides the primary gravity transport: Redis streams for the
// durable log (XADD) and Redis pub/sub for the broadcast channel. Standard
// and subscribe connections come from separate pools because a Redis
// connection in subscribe mode cannot issue ordinary commands.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
	"github.com/gravityai-dev/gravity-server/internal/runtime/pool"
	"github.com/gravityai-dev/gravity-server/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "redis"

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultMaxRetries   = 3
)

func init() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RedisCapabilities)
}

// Config holds Redis-specific settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool

	// StreamMaxLen caps stream growth with approximate trimming. Zero
	// disables trimming.
	StreamMaxLen int64

	// Per-command retry budget and reconnect backoff. Zero values fall back
	// to defaults.
	MaxRetries   int
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// Build creates a Redis transport from the shared transport config.
func Build(ctx context.Context, cfg transport.Config, logger logging.ServiceLogger) (transport.Transport, error) {
	return New(Config{
		Host:         cfg.GetHost(),
		Port:         cfg.GetPort(),
		Username:     cfg.GetUsername(),
		Password:     cfg.GetPassword(),
		DB:           cfg.GetDB(),
		TLS:          cfg.GetTLS(),
		StreamMaxLen: cfg.GetStreamMaxLen(),
		MaxRetries:   cfg.GetRetryMaxRetries(),
		RetryInitial: cfg.GetRetryInitialInterval(),
		RetryMax:     cfg.GetRetryMaxInterval(),
	}, logger), nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RedisCapabilities
}

// Transport implements transport.Transport over go-redis.
type Transport struct {
	cfg    Config
	key    pool.Key
	pool   *pool.Pool
	logger logging.ServiceLogger

	mu      sync.Mutex
	handler transport.Handler
	pubsub  *redis.PubSub
	closed  bool
}

// New creates a Redis transport. Connections are dialed lazily on first use
// through the shared connection pool.
func New(cfg Config, logger logging.ServiceLogger) *Transport {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	t := &Transport{
		cfg: cfg,
		key: pool.Key{
			Host:     cfg.Host,
			Port:     cfg.Port,
			DB:       cfg.DB,
			Username: cfg.Username,
		},
		logger: logger,
	}
	t.pool = pool.New(t.dial,
		pool.WithLogger(logger),
		pool.WithBackoff(cfg.RetryInitial, cfg.RetryMax, cfg.MaxRetries),
	)
	return t
}

// dial establishes one verified client. The per-command retry budget lives in
// go-redis; the reconnect backoff around the whole dial lives in the pool.
func (t *Transport) dial(ctx context.Context, key pool.Key, mode pool.Mode) (pool.Conn, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", key.Host, key.Port),
		Username:     key.Username,
		Password:     t.cfg.Password,
		DB:           key.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		MaxRetries:   defaultMaxRetries,
	}
	if t.cfg.MaxRetries > 0 {
		opts.MaxRetries = t.cfg.MaxRetries
	}
	if t.cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	// Subscribe-mode connections skip read deadlines: a subscriber can sit
	// idle far longer than any command timeout.
	if mode == pool.ModeSubscribe {
		opts.ReadTimeout = -1
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (t *Transport) standardClient(ctx context.Context) (*redis.Client, error) {
	conn, err := t.pool.Acquire(ctx, t.key, pool.ModeStandard)
	if err != nil {
		return nil, err
	}
	return conn.(*redis.Client), nil
}

func (t *Transport) subscribeClient(ctx context.Context) (*redis.Client, error) {
	conn, err := t.pool.Acquire(ctx, t.key, pool.ModeSubscribe)
	if err != nil {
		return nil, err
	}
	return conn.(*redis.Client), nil
}

// Publish broadcasts payload on the channel via Redis pub/sub.
func (t *Transport) Publish(ctx context.Context, channel string, payload []byte) error {
	client, err := t.standardClient(ctx)
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, payload).Err()
}

// AppendToLog appends the entry to the stream with XADD. The filterable
// fields ride alongside the serialized payload so consumers can XRANGE and
// filter without deserializing every entry.
func (t *Transport) AppendToLog(ctx context.Context, streamKey string, entry transport.LogEntry) (string, error) {
	client, err := t.standardClient(ctx)
	if err != nil {
		return "", err
	}
	return client.XAdd(ctx, t.xaddArgs(streamKey, entry)).Result()
}

func (t *Transport) xaddArgs(streamKey string, entry transport.LogEntry) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]any{
			"channel":        entry.Channel,
			"conversationId": entry.ConversationID,
			"providerId":     entry.ProviderID,
			"timestamp":      entry.Timestamp.UTC().Format(time.RFC3339Nano),
			"payload":        entry.Payload,
		},
	}
	if t.cfg.StreamMaxLen > 0 {
		args.MaxLen = t.cfg.StreamMaxLen
		args.Approx = true
	}
	return args
}

// DeliverBatch pipelines every append and broadcast into one round trip.
// Redis aborts the remaining pipeline on failure; the single error surfaces
// to the caller with no per-item reporting.
func (t *Transport) DeliverBatch(ctx context.Context, entries []transport.BatchEntry) error {
	if len(entries) == 0 {
		return nil
	}
	client, err := t.standardClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, be := range entries {
			if be.StreamKey != "" {
				pipe.XAdd(ctx, t.xaddArgs(be.StreamKey, be.Entry))
			}
			pipe.Publish(ctx, be.Channel, be.Entry.Payload)
		}
		return nil
	})
	return err
}

// SetHandler installs the inbound message callback.
func (t *Transport) SetHandler(h transport.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Subscribe adds the channel to the shared subscriber connection, creating it
// on first use.
func (t *Transport) Subscribe(ctx context.Context, channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("redis transport is closed")
	}

	if t.pubsub == nil {
		client, err := t.subscribeClient(ctx)
		if err != nil {
			return err
		}
		t.pubsub = client.Subscribe(ctx, channel)
		go t.consume(t.pubsub.Channel())
		return nil
	}
	return t.pubsub.Subscribe(ctx, channel)
}

func (t *Transport) consume(msgs <-chan *redis.Message) {
	for msg := range msgs {
		t.mu.Lock()
		h := t.handler
		t.mu.Unlock()
		if h != nil {
			h(msg.Channel, []byte(msg.Payload))
		}
	}
}

// Unsubscribe removes the channel from the subscriber connection.
func (t *Transport) Unsubscribe(ctx context.Context, channel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub == nil {
		return nil
	}
	return t.pubsub.Unsubscribe(ctx, channel)
}

// Close tears down the subscriber and drains both connection pools.
// Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	pubsub := t.pubsub
	t.pubsub = nil
	t.mu.Unlock()

	if pubsub != nil {
		_ = pubsub.Close()
	}
	return t.pool.CloseAll()
}
