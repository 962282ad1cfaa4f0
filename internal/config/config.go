// Package config loads the settings of the soepmerge command from environment variables.
package config

import (
	"time"

	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

// Config holds all command settings.
type Config struct {
	Paths    PathsConfig
	Clean    CleanConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// PathsConfig holds input locations.
type PathsConfig struct {
	// MetadataDir is the directory of the *.meta.yaml files (default: metadata)
	MetadataDir string `env:"SOEP_METADATA_DIR" default:"metadata"`

	// DataDir is the directory of the cleaned tables, one CSV file per table (default: data)
	DataDir string `env:"SOEP_DATA_DIR" default:"data"`
}

// CleanConfig holds the codec settings.
type CleanConfig struct {
	// SentinelMin and SentinelMax delimit the missing value codes (default: -8 to -1)
	SentinelMin int64 `env:"SOEP_SENTINEL_MIN" default:"-8"`
	SentinelMax int64 `env:"SOEP_SENTINEL_MAX" default:"-1"`

	// PrefixTokens is the number of label tokens dropped from string categories (default: 1)
	PrefixTokens int `env:"SOEP_PREFIX_TOKENS" default:"1"`

	// NarrowFloats allows float32 columns (default: true)
	NarrowFloats bool `env:"SOEP_NARROW_FLOATS" default:"true"`

	// Concurrency is the number of tables cleaned in parallel (default: 4)
	Concurrency int `env:"SOEP_CLEAN_CONCURRENCY" default:"4"`
}

// DatabaseConfig holds the optional export database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Export to a database is disabled when empty.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema is the schema of the exported tables (default: public)
	Schema string `env:"SOEP_DB_SCHEMA" default:"public"`

	// Timeout is the maximum duration of an export (default: 5m)
	Timeout time.Duration `env:"SOEP_DB_TIMEOUT" default:"5m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the output format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Codec returns the library settings.
func (c *Config) Codec() soep.Config {
	return soep.Config{
		SentinelMin:         c.Clean.SentinelMin,
		SentinelMax:         c.Clean.SentinelMax,
		DefaultPrefixTokens: c.Clean.PrefixTokens,
		NarrowFloats:        c.Clean.NarrowFloats,
		CleanConcurrency:    c.Clean.Concurrency,
	}
}
