package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := Config{Key: "k", Secret: "s"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Session.Debug {
			t.Error("expected session debug for development")
		}
	})

	t.Run("production keeps debug off", func(t *testing.T) {
		cfg := Config{Key: "k", Secret: "s", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Session.Debug {
			t.Error("expected debug off for production")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{Key: "k", Secret: "s", Environment: "production"}
		cfg.Logging.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.Key = "" }, true},
		{"missing secret", func(c *Config) { c.Secret = "" }, true},
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cbkit.yml")

	yamlContent := `
environment: staging
key: file-key
secret: file-secret
session:
  base_url: https://example.test
  timeout: 45s
  retries: 5
  cache:
    disabled: true
rate_limit:
  enabled: true
  per_second: 10
stream:
  channel: ticker
  product_ids: [BTC-USD, ETH-USD]
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected staging, got %q", cfg.Environment)
	}
	if cfg.Session.Timeout != 45*time.Second || cfg.Session.Retries != 5 {
		t.Errorf("session tuning lost: %+v", cfg.Session)
	}
	if !cfg.Session.Cache.Disabled {
		t.Error("cache.disabled lost")
	}

	sc := cfg.SessionConfig(nil)
	if sc.Key != "file-key" || sc.Secret != "file-secret" {
		t.Errorf("credentials not propagated: %+v", sc)
	}
	if sc.RateLimiter == nil || sc.RateLimiter.Rate != 10 {
		t.Errorf("rate limiter not propagated: %+v", sc.RateLimiter)
	}

	st := cfg.StreamConfig(nil)
	if st.Channel != "ticker" || len(st.ProductIDs) != 2 {
		t.Errorf("stream section lost: %+v", st)
	}
	if st.Key != "file-key" {
		t.Error("stream credentials not propagated")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cbkit.yml")
	if err := os.WriteFile(configPath, []byte("environment: production\nkey: file-key\nsecret: file-secret\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("CBKIT_KEY", "env-key")
	t.Setenv("CBKIT_SESSION_BASE_URL", "https://override.test")

	cfg, err := Load(WithConfigFile(configPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Key != "env-key" {
		t.Errorf("expected env override, got %q", cfg.Key)
	}
	if cfg.Session.BaseURL != "https://override.test" {
		t.Errorf("expected nested env override, got %q", cfg.Session.BaseURL)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CBKIT_ENVIRONMENT=production\nCBKIT_KEY=dotenv-key\nCBKIT_SECRET=dotenv-secret\n"), 0o644); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	for _, key := range []string{"CBKIT_ENVIRONMENT", "CBKIT_KEY", "CBKIT_SECRET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Key != "dotenv-key" || cfg.Secret != "dotenv-secret" {
		t.Errorf("dotenv values lost: %+v", cfg)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected production, got %q", cfg.Environment)
	}
}

func TestLoadMissingCredentialsFails(t *testing.T) {
	if _, err := Load(WithConfigFile("/nonexistent/cbkit.yml")); err == nil {
		t.Fatal("expected validation error without credentials")
	}
}

func TestKeyVariants(t *testing.T) {
	variants := keyVariants("SESSION_MAX_BACKOFF")
	want := map[string]bool{
		"session_max_backoff": true,
		"session.max.backoff": true,
		"session.max_backoff": true,
	}
	for _, variant := range variants {
		delete(want, variant)
	}
	if len(want) != 0 {
		t.Errorf("missing variants: %v (got %v)", want, variants)
	}
}

func TestFirstExisting(t *testing.T) {
	fs := fakeFS{"./config/cbkit.yml": true}
	if got := firstExisting(fs, configSearchPaths); got != "./config/cbkit.yml" {
		t.Errorf("expected ./config/cbkit.yml, got %q", got)
	}
	if got := firstExisting(fakeFS{}, configSearchPaths); got != "" {
		t.Errorf("expected no match, got %q", got)
	}
}

type fakeFS map[string]bool

func (f fakeFS) Exists(path string) bool   { return f[path] }
func (f fakeFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(fakeFS{})(&lc)
	WithConfigFile("/path/cbkit.yml")(&lc)
	WithEnvFile("/path/.env")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/cbkit.yml" || lc.EnvFile != "/path/.env" {
		t.Errorf("options not applied: %+v", lc)
	}
}
