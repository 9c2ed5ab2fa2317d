package session

import (
	"fmt"
	"time"

	"github.com/cbkit/cbkit/logger"
	"github.com/cbkit/cbkit/resilience"
)

const (
	// DefaultBaseURL is the production Advanced Trade REST endpoint.
	DefaultBaseURL = "https://api.coinbase.com/api/v3/brokerage"

	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	defaultBackoff  = time.Second
	defaultCacheTTL = 60 * time.Second
)

// CacheConfig configures GET response caching. The zero value enables
// caching with the default TTL.
type CacheConfig struct {
	// Disabled turns response caching off entirely.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
	// TTL is how long a cached response stays live. Defaults to 60s.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Config configures the transport.
type Config struct {
	// BaseURL is prepended to all request paths. Defaults to the
	// production Advanced Trade endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Key is the API key. Required.
	Key string `yaml:"key" mapstructure:"key"`

	// Secret is the API secret. Required.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// Retries is the maximum number of attempts per call (including the
	// first). Defaults to 3.
	Retries int `yaml:"retries" mapstructure:"retries"`

	// Backoff is the base backoff factor between attempts; the delay
	// before attempt n+1 is Backoff * 2^(n-1). Defaults to 1s.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`

	// MaxBackoff caps any single retry delay. Defaults to 30s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`

	// Timeout bounds each individual attempt. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Cache configures GET response caching. Enabled by default.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// RateLimiter enables client-side rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`

	// Debug logs every request and response (credentials redacted) at
	// debug level to the injected logger.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	// Logger is the logging sink. Nil discards everything.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
}

// Validate checks that the configuration is coherent. Credential
// validation happens in auth at signer construction.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("session: timeout must be positive")
	}
	if c.Retries <= 0 {
		return fmt.Errorf("session: retries must be positive")
	}
	return nil
}
