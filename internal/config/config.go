// Package config defines the configuration of the didbase retriever.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Defaults (Lowest)
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the top-level configuration struct.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Cache    CacheConfig
	Upstream UpstreamConfig
	AWS      AWSConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// CacheConfig locates the on-disk artifact cache.
type CacheConfig struct {
	// Dir defaults to $XDG_CACHE_HOME/didbase when unset.
	Dir string `envconfig:"DIDBASE_CACHE_DIR"`
}

// UpstreamConfig controls how raw text is retrieved.
type UpstreamConfig struct {
	// BaseURL is the DIDBGetValues endpoint, or an ftp:// or s3:// raw-text mirror.
	BaseURL    string        `envconfig:"DIDBASE_BASE_URL" default:"https://lgdc.uml.edu/common/DIDBGetValues" validate:"required,url"`
	Timeout    time.Duration `envconfig:"DIDBASE_TIMEOUT" default:"15s" validate:"gt=0"`
	MaxRetries int           `envconfig:"DIDBASE_MAX_RETRIES" default:"0" validate:"gte=0,lte=10"`
	UserAgent  string        `envconfig:"DIDBASE_USER_AGENT" default:"didbase"`
	DMUF       int           `envconfig:"DIDBASE_DMUF" default:"3000" validate:"gt=0"`
}

// AWSConfig is used only by the s3:// mirror transport.
type AWSConfig struct {
	Region      string `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrCacheDir indicates the default cache directory could not be resolved.
	ErrCacheDir ConfigErrorType = "CACHE_DIR_UNRESOLVED"
)
