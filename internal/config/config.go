// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the payload source, data directory, log level and download tuning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultLogLevel      = "info"
	DefaultDataDir       = "data"
	DefaultHTTPTimeout   = 60 * time.Second
	DefaultDownloadChunk = 1 << 20 // 1 MiB, matches the streaming hash chunk size
)

// Config holds all application configuration
type Config struct {
	// FetchURL is the Moodle endpoint serving the export payload.
	// Optional: the importer can also read a payload from a local file.
	FetchURL string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// DataDir holds the SQLite repository database.
	DataDir string

	// HTTPTimeout bounds every payload fetch and file download.
	HTTPTimeout time.Duration

	// DownloadChunkSize is the streaming buffer size for downloads,
	// shared by the hash accumulator and the temp-file writer.
	DownloadChunkSize int
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		FetchURL:          os.Getenv(EnvFetchURL),
		LogLevel:          getEnv(EnvLogLevel, DefaultLogLevel),
		DataDir:           getEnv(EnvDataDir, DefaultDataDir),
		HTTPTimeout:       DefaultHTTPTimeout,
		DownloadChunkSize: DefaultDownloadChunk,
	}

	if raw := os.Getenv(EnvHTTPTimeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvHTTPTimeout, raw, err)
		}
		cfg.HTTPTimeout = timeout
	}

	if raw := os.Getenv(EnvDownloadChunk); raw != "" {
		chunk, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", EnvDownloadChunk, raw, err)
		}
		cfg.DownloadChunkSize = chunk
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", c.LogLevel)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}

	if c.DownloadChunkSize <= 0 {
		return fmt.Errorf("download chunk size must be positive, got %d", c.DownloadChunkSize)
	}

	return nil
}

// getEnv returns the value of the environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
