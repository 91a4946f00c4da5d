package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, "/tmp/montage", cfg.TempDir)
	assert.Equal(t, "/tmp/montage/artifacts", cfg.ArtifactDir)
	assert.Equal(t, 24*time.Hour, cfg.StaleSessionAge)
	assert.Equal(t, 20, cfg.DownloadBatchSize)
	assert.Equal(t, 3*time.Second, cfg.BatchCooldown)
	assert.Equal(t, 3, cfg.DownloadRetries)
	assert.Equal(t, 30*time.Second, cfg.VideoFetchTimeout)
	assert.Equal(t, 10*time.Second, cfg.ImageFetchTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ProviderDelay)
	assert.Equal(t, "renders", cfg.S3Prefix)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("TEMP_DIR", "/custom/temp")
	t.Setenv("ARTIFACT_DIR", "/custom/artifacts")
	t.Setenv("DOWNLOAD_BATCH_SIZE", "10")
	t.Setenv("BATCH_COOLDOWN", "5s")
	t.Setenv("DOWNLOAD_MAX_RETRIES", "5")
	t.Setenv("VIDEO_FETCH_TIMEOUT", "1m")
	t.Setenv("IMAGE_FETCH_TIMEOUT", "20s")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/custom/artifacts", cfg.ArtifactDir)
	assert.Equal(t, 10, cfg.DownloadBatchSize)
	assert.Equal(t, 5*time.Second, cfg.BatchCooldown)
	assert.Equal(t, 5, cfg.DownloadRetries)
	assert.Equal(t, time.Minute, cfg.VideoFetchTimeout)
	assert.Equal(t, 20*time.Second, cfg.ImageFetchTimeout)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("BATCH_COOLDOWN", "invalid")

	// go-envconfig returns an error when parsing fails
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		TempDir:            "/tmp/test",
		ArtifactDir:        "/tmp/test/artifacts",
		DownloadBatchSize:  20,
		BatchCooldown:      3 * time.Second,
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "access-key",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "access-key")
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)

	// Capture output to verify it's JSON
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil)
	testLogger := slog.New(handler)
	testLogger.Info("test message")

	// Should have JSON structure
	assert.Contains(t, buf.String(), `"msg"`)
	assert.Contains(t, buf.String(), "test message")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	// Just verify it returns a valid logger
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DownloadBatchSize: 20,
			DownloadRetries:   3,
			VideoFetchTimeout: 30 * time.Second,
			ImageFetchTimeout: 10 * time.Second,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		err := valid().Validate()
		assert.NoError(t, err)
	})

	t.Run("zero batch size", func(t *testing.T) {
		cfg := valid()
		cfg.DownloadBatchSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidBatchSize)
	})

	t.Run("negative retry budget", func(t *testing.T) {
		cfg := valid()
		cfg.DownloadRetries = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRetryBudget)
	})

	t.Run("zero image timeout", func(t *testing.T) {
		cfg := valid()
		cfg.ImageFetchTimeout = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidTimeout)
	})
}
