// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	S3       S3Config
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Needed only when committing;
	// dry runs never connect. Supports DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// ConnectTimeout bounds pool creation and the initial ping (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// ImportConfig holds input decoding and row processing settings.
type ImportConfig struct {
	// Delimiter is auto, comma, tab, semicolon, pipe or a single character (default: auto)
	Delimiter string `env:"IMPORT_DELIMITER" default:"auto"`

	// MaxFileSize is the largest accepted input in bytes; 0 disables the check (default: 100MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// CreateTimeout bounds each product insert; 0 disables it (default: 10s)
	CreateTimeout time.Duration `env:"IMPORT_CREATE_TIMEOUT" default:"10s"`

	// ReportFormat is the summary format: text, json or html (default: text)
	ReportFormat string `env:"IMPORT_REPORT_FORMAT" default:"text"`
}

// S3Config holds settings for s3://bucket/key sources.
type S3Config struct {
	// Region is the AWS region (default: us-east-1)
	Region string `env:"S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// Endpoint overrides the S3 endpoint for compatible stores such as MinIO
	Endpoint string `env:"S3_ENDPOINT"`

	// ForcePathStyle uses bucket-in-path addressing (default: false)
	ForcePathStyle bool `env:"S3_FORCE_PATH_STYLE" default:"false"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	// Addr serves /metrics while the import runs, e.g. ":9090" (default: disabled)
	Addr string `env:"METRICS_ADDR"`

	// Textfile is written with the final metrics after the run (default: disabled)
	Textfile string `env:"METRICS_TEXTFILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
