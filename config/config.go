package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cbkit/cbkit/logger"
	"github.com/cbkit/cbkit/resilience"
	"github.com/cbkit/cbkit/session"
	"github.com/cbkit/cbkit/stream"
)

var validate = validator.New()

// RateLimitConfig configures the optional client-side request limiter.
type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled" mapstructure:"enabled"`
	PerSecond float64 `yaml:"per_second" mapstructure:"per_second"`
	Burst     int     `yaml:"burst" mapstructure:"burst"`
}

// StreamConfig is the file-facing shape of a market data subscription.
type StreamConfig struct {
	Env        string   `yaml:"env" mapstructure:"env"`
	URL        string   `yaml:"url" mapstructure:"url"`
	Channel    string   `yaml:"channel" mapstructure:"channel"`
	ProductIDs []string `yaml:"product_ids" mapstructure:"product_ids"`
	QueueSize  int      `yaml:"queue_size" mapstructure:"queue_size"`
}

// Config is the full client configuration. Credentials are declared
// once at the top level and shared by the REST session and the stream.
type Config struct {
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`

	Key    string `yaml:"key" mapstructure:"key" validate:"required"`
	Secret string `yaml:"secret" mapstructure:"secret" validate:"required"`

	Session   session.Config  `yaml:"session" mapstructure:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Stream    StreamConfig    `yaml:"stream" mapstructure:"stream"`
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Session.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the configuration. Session tuning is validated at
// client construction; this covers credentials and the shared fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger builds a logger from the logging section.
func (c *Config) NewLogger() *logger.Logger {
	return logger.New(&c.Logging, nil)
}

// SessionConfig assembles the REST transport configuration: the nested
// session section with the shared credentials, limiter and logger
// filled in.
func (c *Config) SessionConfig(log *logger.Logger) session.Config {
	sc := c.Session
	sc.Key = c.Key
	sc.Secret = c.Secret
	sc.Logger = log
	if c.RateLimit.Enabled {
		sc.RateLimiter = &resilience.RateLimiterConfig{
			Rate:  c.RateLimit.PerSecond,
			Burst: c.RateLimit.Burst,
		}
	}
	return sc
}

// StreamConfig assembles a market data stream configuration for the
// configured channel.
func (c *Config) StreamConfig(log *logger.Logger) stream.Config {
	return stream.Config{
		URL:        c.Stream.URL,
		Env:        c.Stream.Env,
		Key:        c.Key,
		Secret:     c.Secret,
		Channel:    c.Stream.Channel,
		ProductIDs: c.Stream.ProductIDs,
		QueueSize:  c.Stream.QueueSize,
		Logger:     log,
	}
}
