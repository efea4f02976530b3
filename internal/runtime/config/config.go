// Package config groups the connection and delivery settings required to build
// the messaging container. The hosting application loads these values however
// it likes (env, files, flags); the core never reads the environment itself.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Default channel and stream naming. Every deployment shares one broadcast
// channel unless a publish call overrides it; durable entries land on a
// namespace-qualified stream derived from the channel.
const (
	DefaultChannel         = "gravity:output"
	DefaultStreamNamespace = "gravity:stream"
)

// Config carries everything needed to connect a producer or consumer to the
// realtime bus. Each transport only uses the keys relevant to it.
type Config struct {
	// Transport selects the backing infrastructure: "redis" (default), "nats",
	// or "channel" (in-memory, for tests and local development).
	Transport string

	// Redis endpoint. Connections are pooled by (host, port, db, username).
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool

	// NATS configuration.
	NATSURL string

	// ProviderID identifies which producer authored a message. It becomes the
	// envelope providerId whenever a publish call does not supply one.
	ProviderID string

	// Channel is the broadcast channel used when a publish call carries no
	// explicit override. Defaults to DefaultChannel.
	Channel string

	// StreamNamespace prefixes durable stream keys. Defaults to
	// DefaultStreamNamespace.
	StreamNamespace string

	// StreamMaxLen caps durable stream growth with approximate trimming.
	// Zero disables trimming.
	StreamMaxLen int64

	// DisableDurableLog turns off the durable append path entirely, leaving
	// best-effort broadcast delivery only.
	DisableDurableLog bool

	// Connection retry tuning. Zero values fall back to library defaults.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Getter methods to implement the transport.Config interface.
func (c *Config) GetTransport() string                   { return c.Transport }
func (c *Config) GetHost() string                        { return c.Host }
func (c *Config) GetPort() int                           { return c.Port }
func (c *Config) GetUsername() string                    { return c.Username }
func (c *Config) GetPassword() string                    { return c.Password }
func (c *Config) GetDB() int                             { return c.DB }
func (c *Config) GetTLS() bool                           { return c.TLS }
func (c *Config) GetNATSURL() string                     { return c.NATSURL }
func (c *Config) GetStreamMaxLen() int64                 { return c.StreamMaxLen }
func (c *Config) GetRetryMaxRetries() int                { return c.RetryMaxRetries }
func (c *Config) GetRetryInitialInterval() time.Duration { return c.RetryInitialInterval }
func (c *Config) GetRetryMaxInterval() time.Duration     { return c.RetryMaxInterval }

// ResolvedChannel returns the default broadcast channel for this deployment.
func (c *Config) ResolvedChannel() string {
	if c.Channel != "" {
		return c.Channel
	}
	return DefaultChannel
}

// ResolvedStreamNamespace returns the durable stream prefix for this deployment.
func (c *Config) ResolvedStreamNamespace() string {
	if c.StreamNamespace != "" {
		return c.StreamNamespace
	}
	return DefaultStreamNamespace
}

func (c Config) String() string {
	copy := c
	if copy.Password != "" {
		copy.Password = "***REDACTED***"
	}
	// Use a type alias to avoid infinite recursion when printing
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(copy))
}

// Validate checks that the configuration has all required fields for the
// selected transport. Returns an error describing every problem found.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateRetry()...)

	if c.ProviderID == "" {
		errs = append(errs, errors.New("providerId: identity is required"))
	}

	return errors.Join(errs...)
}

func (c *Config) validateTransport() []error {
	switch c.Transport {
	case "", "redis":
		var errs []error
		if c.Host == "" {
			errs = append(errs, errors.New("redis: host is required"))
		}
		if c.Port <= 0 || c.Port > 65535 {
			errs = append(errs, fmt.Errorf("redis: invalid port %d", c.Port))
		}
		if c.DB < 0 {
			errs = append(errs, fmt.Errorf("redis: invalid db %d", c.DB))
		}
		return errs
	case "nats":
		if c.NATSURL == "" {
			return []error{errors.New("nats: URL is required")}
		}
	}
	// channel and custom transports have no required connection config
	return nil
}

func (c *Config) validateRetry() []error {
	var errs []error
	if c.RetryMaxRetries < 0 {
		errs = append(errs, errors.New("retry: max retries cannot be negative"))
	}
	if c.RetryInitialInterval < 0 {
		errs = append(errs, errors.New("retry: initial interval cannot be negative"))
	}
	if c.RetryMaxInterval < 0 {
		errs = append(errs, errors.New("retry: max interval cannot be negative"))
	}
	if c.RetryMaxInterval > 0 && c.RetryInitialInterval > 0 && c.RetryInitialInterval > c.RetryMaxInterval {
		errs = append(errs, errors.New("retry: initial interval cannot exceed max interval"))
	}
	return errs
}

// ValidateConfig is a convenience function to validate a config pointer.
// Returns nil if the config is valid.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
