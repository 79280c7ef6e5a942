// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Source
	EnvFetchURL = "MOODLE_FETCH_URL"

	// Server
	EnvLogLevel = "MOODLE_LOG_LEVEL"

	// Data
	EnvDataDir = "MOODLE_DATA_DIR"

	// Downloads
	EnvHTTPTimeout   = "MOODLE_HTTP_TIMEOUT"
	EnvDownloadChunk = "MOODLE_DOWNLOAD_CHUNK_SIZE"
)
