package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"BACKENDS", "SOURCE", "INTERPOLATION_PROFILE", "ACCUMULATE_STRATEGIES",
	"BACKOFF_MIN_MS", "BACKOFF_MAX_MS", "MAX_BACKEND_ATTEMPTS", "FETCH_TIMEOUT_SEC", "REQUEST_DELAY_MS",
	"WINDOW_DELAY_MIN_MS", "WINDOW_DELAY_MAX_MS", "OUTPUT_DIR", "PROXIES", "CHROME_BIN", "HEADLESS",
	"LOG_LEVEL", "DATABASE_URL", "POSTGRES_HOST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, []string{"requests", "mobile", "browser", "proxy"}, cfg.Backends)
	assert.Empty(t, cfg.Proxies)
	assert.True(t, cfg.Headless)
	assert.False(t, cfg.PostgresEnabled())
	lo, hi := cfg.BackoffRange()
	assert.Equal(t, 5*time.Second, lo)
	assert.Equal(t, 10*time.Second, hi)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKENDS", " Browser, requests ,")
	t.Setenv("PROXIES", "http://User:Pass@p1:8080,http://p2:8080")
	t.Setenv("HEADLESS", "false")
	t.Setenv("FETCH_TIMEOUT_SEC", "45")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/marketplace?sslmode=disable")

	cfg := FromEnv()

	assert.Equal(t, []string{"browser", "requests"}, cfg.Backends)
	assert.Equal(t, []string{"http://User:Pass@p1:8080", "http://p2:8080"}, cfg.Proxies)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout())
	assert.True(t, cfg.PostgresEnabled())
	assert.Equal(t, "postgres://u:p@db/marketplace?sslmode=disable", cfg.DSN())
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no backends", func(c *Config) { c.Backends = nil }, "at least one backend"},
		{"unknown backend", func(c *Config) { c.Backends = []string{"selenium"} }, "unknown backend"},
		{"unknown profile", func(c *Config) { c.InterpolationProfile = "exhaustive" }, "interpolation profile"},
		{"inverted backoff", func(c *Config) { c.BackoffMinMs, c.BackoffMaxMs = 10, 5 }, "backoff range"},
		{"inverted window delay", func(c *Config) { c.WindowDelayMinMs, c.WindowDelayMaxMs = 10, 5 }, "window delay"},
		{"zero timeout", func(c *Config) { c.FetchTimeoutSec = 0 }, "FETCH_TIMEOUT_SEC"},
		{"missing chrome", func(c *Config) { c.ChromeBin = "/nonexistent/chrome" }, "chrome binary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSNFromParts(t *testing.T) {
	cfg := &Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "m", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=m sslmode=disable", cfg.DSN())
}
