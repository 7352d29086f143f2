// Package config loads csvclean settings from environment variables.
// Every field has a default except where noted; Load validates the result so
// a bad deployment fails at startup rather than on the first request.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Clean     CleanConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig selects where cleaning runs are kept.
type DatabaseConfig struct {
	// URL is "memory", a postgres:// URL or a SQLite path (sqlite:runs.db).
	// DB_URL is accepted for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"memory"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections kept open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CleanConfig holds settings for cleaning jobs.
type CleanConfig struct {
	// MaxFileSize is the largest accepted input in bytes (default: 50MB)
	MaxFileSize int64 `env:"CLEAN_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of jobs allowed to run at once (default: 5)
	MaxConcurrent int `env:"CLEAN_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a job waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"CLEAN_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single cleaning job (default: 60s)
	Timeout time.Duration `env:"CLEAN_TIMEOUT" default:"60s"`

	// Workers is the number of row validation goroutines; 0 uses GOMAXPROCS.
	Workers int `env:"CLEAN_WORKERS" default:"0"`

	// ParallelThreshold is the data row count above which validation fans out (default: 5000)
	ParallelThreshold int `env:"CLEAN_PARALLEL_THRESHOLD" default:"5000"`

	// PresetsFile is an optional YAML file of column presets and email rules.
	PresetsFile string `env:"CLEAN_PRESETS_FILE"`

	// RejectionSampleSize caps the rejected rows kept with a run (default: 50)
	RejectionSampleSize int `env:"CLEAN_REJECTION_SAMPLE_SIZE" default:"50"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CleanLimit is requests per minute for the cleaning endpoints (default: 20)
	CleanLimit int `env:"RATE_LIMIT_CLEAN" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RetentionConfig controls pruning of old cleaning runs.
type RetentionConfig struct {
	// RunRetentionDays is how long runs are kept (default: 30)
	RunRetentionDays int `env:"RUN_RETENTION_DAYS" default:"30"`

	// CheckInterval is how often the pruning job runs (default: 1h)
	CheckInterval time.Duration `env:"RUN_RETENTION_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
