package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names understood by BACKENDS, in their default priority order.
const (
	BackendRequests = "requests"
	BackendMobile   = "mobile"
	BackendBrowser  = "browser"
	BackendProxy    = "proxy"
)

var knownBackends = []string{BackendRequests, BackendMobile, BackendBrowser, BackendProxy}

var knownProfiles = []string{"single", "fast", "thorough", "normal"}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Backends             []string
	Source               string
	InterpolationProfile string
	AccumulateStrategies bool

	BackoffMinMs       int
	BackoffMaxMs       int
	MaxBackendAttempts int
	FetchTimeoutSec    int
	RequestDelayMs     int
	WindowDelayMinMs   int
	WindowDelayMaxMs   int

	OutputDir string
	Proxies   []string
	ChromeBin string
	Headless  bool
	LogLevel  string

	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Backends:             lower(getEnvList("BACKENDS", knownBackends)),
		Source:               getEnv("SOURCE", "facebook"),
		InterpolationProfile: getEnv("INTERPOLATION_PROFILE", "fast"),
		AccumulateStrategies: getEnvBool("ACCUMULATE_STRATEGIES", false),

		BackoffMinMs:       getEnvInt("BACKOFF_MIN_MS", 5000),
		BackoffMaxMs:       getEnvInt("BACKOFF_MAX_MS", 10000),
		MaxBackendAttempts: getEnvInt("MAX_BACKEND_ATTEMPTS", 0),
		FetchTimeoutSec:    getEnvInt("FETCH_TIMEOUT_SEC", 30),
		RequestDelayMs:     getEnvInt("REQUEST_DELAY_MS", 2000),
		WindowDelayMinMs:   getEnvInt("WINDOW_DELAY_MIN_MS", 2000),
		WindowDelayMaxMs:   getEnvInt("WINDOW_DELAY_MAX_MS", 5000),

		OutputDir: getEnv("OUTPUT_DIR", "processed"),
		Proxies:   getEnvList("PROXIES", nil),
		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "marketplace_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("config error: 'BACKENDS' must name at least one backend")
	}
	for _, b := range c.Backends {
		if !contains(knownBackends, b) {
			return fmt.Errorf("config error: unknown backend %q (known: %s)", b, strings.Join(knownBackends, ", "))
		}
	}
	if !contains(knownProfiles, strings.ToLower(c.InterpolationProfile)) {
		return fmt.Errorf("config error: unknown interpolation profile %q", c.InterpolationProfile)
	}

	if c.BackoffMinMs < 0 || c.BackoffMaxMs < c.BackoffMinMs {
		return fmt.Errorf("config error: backoff range [%d, %d]ms is invalid", c.BackoffMinMs, c.BackoffMaxMs)
	}
	if c.WindowDelayMinMs < 0 || c.WindowDelayMaxMs < c.WindowDelayMinMs {
		return fmt.Errorf("config error: window delay range [%d, %d]ms is invalid", c.WindowDelayMinMs, c.WindowDelayMaxMs)
	}
	if c.MaxBackendAttempts < 0 {
		return fmt.Errorf("config error: 'MAX_BACKEND_ATTEMPTS' must be non-negative")
	}
	if c.FetchTimeoutSec <= 0 {
		return fmt.Errorf("config error: 'FETCH_TIMEOUT_SEC' must be positive")
	}
	if c.RequestDelayMs < 0 {
		return fmt.Errorf("config error: 'REQUEST_DELAY_MS' must be non-negative")
	}

	if c.ChromeBin != "" {
		if _, err := os.Stat(c.ChromeBin); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromeBin)
		}
	}
	return nil
}

// BackoffRange returns the pause range between backend attempts.
func (c *Config) BackoffRange() (time.Duration, time.Duration) {
	return ms(c.BackoffMinMs), ms(c.BackoffMaxMs)
}

// WindowDelayRange returns the pause range between interpolation windows.
func (c *Config) WindowDelayRange() (time.Duration, time.Duration) {
	return ms(c.WindowDelayMinMs), ms(c.WindowDelayMaxMs)
}

// FetchTimeout returns the per-fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// RequestDelay returns colly's random delay ceiling between requests.
func (c *Config) RequestDelay() time.Duration {
	return ms(c.RequestDelayMs)
}

// PostgresEnabled reports whether a database sink was configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != "" || c.PostgresHost != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func lower(list []string) []string {
	for i := range list {
		list[i] = strings.ToLower(list[i])
	}
	return list
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
