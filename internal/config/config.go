// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// AppConfig holds deployment-level settings.
type AppConfig struct {
	// Environment is one of development, test, staging, production (default: production).
	// Destructive operations run only in development and test.
	Environment string `env:"APP_ENV" envAlt:"ENV" default:"production"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds import run settings.
type ImportConfig struct {
	// Timeout is the maximum duration of one import run (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// ProgressEvery logs progress after this many rows of a file (default: 1000)
	ProgressEvery int `env:"IMPORT_PROGRESS_EVERY" default:"1000"`

	// MigrationsTable is the goose version table (default: roster_schema_migrations)
	MigrationsTable string `env:"IMPORT_MIGRATIONS_TABLE" default:"roster_schema_migrations"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus Pushgateway settings.
type MetricsConfig struct {
	// PushgatewayURL enables pushing run metrics when set (e.g. http://pushgateway:9091)
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`

	// Job is the Pushgateway job name (default: rosterimport)
	Job string `env:"METRICS_JOB" default:"rosterimport"`
}

// AllowsDestructiveImports reports whether force-create imports and resets
// may run. Only development and test environments allow them.
func (c *AppConfig) AllowsDestructiveImports() bool {
	switch c.Environment {
	case "development", "dev", "test":
		return true
	default:
		return false
	}
}

// MetricsEnabled reports whether a Pushgateway is configured.
func (c *MetricsConfig) MetricsEnabled() bool {
	return c.PushgatewayURL != ""
}
