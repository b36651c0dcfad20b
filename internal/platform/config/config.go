// Package config loads and validates the todo service's settings: the HTTP
// listener, logging, the storage backend selection and telemetry. See Load
// for how defaults, YAML profiles and the environment are layered.
package config

import "time"

// Storage backend names accepted by storage.backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the resolved service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string          `koanf:"host"`
	Port         int             `koanf:"port"`
	ReadTimeout  time.Duration   `koanf:"read_timeout"`
	WriteTimeout time.Duration   `koanf:"write_timeout"`
	IdleTimeout  time.Duration   `koanf:"idle_timeout"`
	RateLimit    RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig holds inbound request rate limiting settings.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// LogConfig selects the slog level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StorageConfig selects the todo store and holds its connection settings.
type StorageConfig struct {
	Backend         string               `koanf:"backend"`
	DatabaseURL     string               `koanf:"database_url"`
	MaxConns        int                  `koanf:"max_conns"`
	MinConns        int                  `koanf:"min_conns"`
	MaxConnLifetime time.Duration        `koanf:"max_conn_lifetime"`
	CircuitBreaker  CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the breaker in front of the postgres store:
// MaxFailures consecutive failures open it for Timeout, after which
// HalfOpenLimit trial requests decide whether it closes again.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}

// TelemetryConfig drives telemetry.Setup.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}
