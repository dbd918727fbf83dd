// Package config provides environment-driven configuration for the audit log service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL      Secret
	Port             string
	ListenHost       string
	MetricsPort      string
	CORSOrigins      []string
	LogLevel         string
	Environment      string
	TenantAPIKeys    map[string]Secret
	DBMaxConns       int
	DBMinConns       int
	DBAcquireTimeout time.Duration
	RequestTimeout   time.Duration
	DebugErrors      bool
	SentryDSN        Secret
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file (ENV_FILE, default ".env") is loaded first when present; it never
// overrides variables already set in the process environment.
func Load() (*Config, error) {
	if err := loadEnvFile(envOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		MetricsPort: envOrDefault("METRICS_PORT", "9092"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		DebugErrors: envOrDefault("DEBUG_ERRORS", "false") == "true",
		SentryDSN:   Secret(envOrDefault("SENTRY_DSN", "")),
	}

	maxConns, err := strconv.Atoi(envOrDefault("DB_MAX_CONNS", "20"))
	if err != nil || maxConns < 2 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 2 and 200")
	}
	cfg.DBMaxConns = maxConns

	minConns, err := strconv.Atoi(envOrDefault("DB_MIN_CONNS", "2"))
	if err != nil || minConns < 0 || minConns > maxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS must be an integer between 0 and DB_MAX_CONNS")
	}
	cfg.DBMinConns = minConns

	if cfg.DBAcquireTimeout, err = parseDuration("DB_ACQUIRE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	keys, err := parseTenantKeys(envOrDefault("TENANT_API_KEYS", ""))
	if err != nil {
		return nil, err
	}
	cfg.TenantAPIKeys = keys

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

// parseTenantKeys parses "COMP001=key1,COMP002=key2" into a tenant → key map.
func parseTenantKeys(raw string) (map[string]Secret, error) {
	keys := make(map[string]Secret)
	if strings.TrimSpace(raw) == "" {
		return keys, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		tenant, key, ok := strings.Cut(pair, "=")
		tenant, key = strings.TrimSpace(tenant), strings.TrimSpace(key)
		if !ok || tenant == "" || key == "" {
			return nil, fmt.Errorf("TENANT_API_KEYS entries must look like TENANT=KEY")
		}

		if _, dup := keys[tenant]; dup {
			return nil, fmt.Errorf("TENANT_API_KEYS lists tenant %q more than once", tenant)
		}

		keys[tenant] = Secret(key)
	}

	return keys, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration (e.g. 5s)", key)
	}

	return d, nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
