// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidBatchSize is returned when DOWNLOAD_BATCH_SIZE is not positive.
	ErrInvalidBatchSize = errors.New("config: DOWNLOAD_BATCH_SIZE must be positive")
	// ErrInvalidRetryBudget is returned when DOWNLOAD_MAX_RETRIES is negative.
	ErrInvalidRetryBudget = errors.New("config: DOWNLOAD_MAX_RETRIES must not be negative")
	// ErrInvalidTimeout is returned when a fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("config: fetch timeouts must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Media toolkit settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Storage settings
	TempDir         string        `env:"TEMP_DIR, default=/tmp/montage" json:"temp_dir"`
	ArtifactDir     string        `env:"ARTIFACT_DIR, default=/tmp/montage/artifacts" json:"artifact_dir"`
	StaleSessionAge time.Duration `env:"STALE_SESSION_AGE, default=24h" json:"stale_session_age"`

	// Download settings
	DownloadBatchSize int           `env:"DOWNLOAD_BATCH_SIZE, default=20" json:"download_batch_size"`
	BatchCooldown     time.Duration `env:"BATCH_COOLDOWN, default=3s" json:"batch_cooldown"`
	DownloadRetries   int           `env:"DOWNLOAD_MAX_RETRIES, default=3" json:"download_max_retries"`
	VideoFetchTimeout time.Duration `env:"VIDEO_FETCH_TIMEOUT, default=30s" json:"video_fetch_timeout"`
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT, default=10s" json:"image_fetch_timeout"`
	ProviderDelay     time.Duration `env:"PROVIDER_DELAY, default=500ms" json:"provider_delay"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"` // For S3-compatible stores
	S3Prefix           string `env:"S3_PREFIX, default=renders" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	if c.DownloadBatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.DownloadRetries < 0 {
		return ErrInvalidRetryBudget
	}
	if c.VideoFetchTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, TempDir: %s, ArtifactDir: %s, DownloadBatchSize: %d, BatchCooldown: %s, DownloadRetries: %d, VideoFetchTimeout: %s, ImageFetchTimeout: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.TempDir,
		c.ArtifactDir,
		c.DownloadBatchSize,
		c.BatchCooldown,
		c.DownloadRetries,
		c.VideoFetchTimeout,
		c.ImageFetchTimeout,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
