// Package pool deduplicates transport connections so every call site sharing
// an endpoint shares one connection. Subscribe-mode connections live in their
// own pool: a connection placed into subscribe mode cannot issue ordinary
// publish or read commands, so it must never be handed to a standard caller.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	errspkg "github.com/gravityai-dev/gravity-server/internal/runtime/errors"
	"github.com/gravityai-dev/gravity-server/internal/runtime/logging"
)

// Mode selects whether the connection will issue commands or sit in
// subscribe mode.
type Mode int

const (
	ModeStandard Mode = iota
	ModeSubscribe
)

func (m Mode) String() string {
	if m == ModeSubscribe {
		return "subscribe"
	}
	return "standard"
}

// Key identifies one transport endpoint. Identical keys share a connection
// within each mode.
type Key struct {
	Host     string
	Port     int
	DB       int
	Username string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d/%d@%s", k.Host, k.Port, k.DB, k.Username)
}

// Conn is the minimal handle the pool manages.
type Conn interface {
	Close() error
}

// Dialer establishes a single connection for a key and mode. The pool applies
// the bounded backoff policy around it.
type Dialer func(ctx context.Context, key Key, mode Mode) (Conn, error)

const (
	defaultInitialInterval = 250 * time.Millisecond
	defaultMaxInterval     = 5 * time.Second
	defaultMaxTries        = 5
)

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger attaches a logger for dial and close events.
func WithLogger(log logging.ServiceLogger) Option {
	return func(p *Pool) { p.logger = log }
}

// WithBackoff tunes the reconnect policy. Zero values keep the defaults.
func WithBackoff(initial, max time.Duration, maxTries int) Option {
	return func(p *Pool) {
		if initial > 0 {
			p.initialInterval = initial
		}
		if max > 0 {
			p.maxInterval = max
		}
		if maxTries > 0 {
			p.maxTries = maxTries
		}
	}
}

// Pool hands out shared connections keyed by endpoint and mode. Acquire is
// safe for concurrent use; a missing entry results in exactly one dial even
// under concurrent first acquisition.
type Pool struct {
	dial   Dialer
	logger logging.ServiceLogger

	initialInterval time.Duration
	maxInterval     time.Duration
	maxTries        int

	flight singleflight.Group

	mu        sync.Mutex
	standard  map[Key]Conn
	subscribe map[Key]Conn
	closed    bool
}

// New creates a pool around the given dialer.
func New(dial Dialer, opts ...Option) *Pool {
	if dial == nil {
		panic("gravity: pool dialer cannot be nil")
	}
	p := &Pool{
		dial:            dial,
		logger:          logging.NewNopLogger(),
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxTries:        defaultMaxTries,
		standard:        make(map[Key]Conn),
		subscribe:       make(map[Key]Conn),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns the shared connection for the key and mode, dialing it on
// first use. Dial failures are retried with capped exponential backoff; once
// retries are exhausted the error surfaces as a TransportError.
func (p *Pool) Acquire(ctx context.Context, key Key, mode Mode) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errspkg.ErrPoolClosed
	}
	if conn, ok := p.pool(mode)[key]; ok {
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	// singleflight collapses concurrent first acquisitions of the same entry
	// into one dial, so a race never creates a second connection that would
	// be silently discarded.
	v, err, _ := p.flight.Do(key.String()+"|"+mode.String(), func() (any, error) {
		p.mu.Lock()
		if conn, ok := p.pool(mode)[key]; ok {
			p.mu.Unlock()
			return conn, nil
		}
		p.mu.Unlock()

		conn, err := p.dialWithBackoff(ctx, key, mode)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = conn.Close()
			return nil, errspkg.ErrPoolClosed
		}
		p.pool(mode)[key] = conn
		p.mu.Unlock()

		p.logger.Debug("connection established", logging.LogFields{
			"endpoint": key.String(),
			"mode":     mode.String(),
		})
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Conn), nil
}

func (p *Pool) dialWithBackoff(ctx context.Context, key Key, mode Mode) (Conn, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.initialInterval
	expo.MaxInterval = p.maxInterval

	conn, err := backoff.Retry(ctx, func() (Conn, error) {
		conn, err := p.dial(ctx, key, mode)
		if err != nil {
			p.logger.Debug("dial failed, retrying", logging.LogFields{
				"endpoint": key.String(),
				"mode":     mode.String(),
				"error":    err.Error(),
			})
			return nil, err
		}
		return conn, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(uint(p.maxTries)))
	if err != nil {
		return nil, &errspkg.TransportError{Op: "dial " + key.String(), Err: err}
	}
	return conn, nil
}

func (p *Pool) pool(mode Mode) map[Key]Conn {
	if mode == ModeSubscribe {
		return p.subscribe
	}
	return p.standard
}

// Len reports how many connections are pooled for the mode.
func (p *Pool) Len(mode Mode) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool(mode))
}

// CloseAll drains every pooled connection. It is idempotent; the pool rejects
// further Acquire calls afterward.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, m := range []map[Key]Conn{p.standard, p.subscribe} {
		for key, conn := range m {
			if err := conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			delete(m, key)
		}
	}
	return firstErr
}
