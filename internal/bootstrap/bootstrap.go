// Package bootstrap provides dependency initialization for the montage API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/alexmu/montage-api/internal/config"
	"github.com/alexmu/montage-api/internal/fetch"
	"github.com/alexmu/montage-api/internal/media"
	"github.com/alexmu/montage-api/internal/render"
	"github.com/alexmu/montage-api/internal/session"
	"github.com/alexmu/montage-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	RenderService *render.Service
	Artifacts     storage.Store
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize artifact storage
	artifacts, err := initArtifactStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the session manager and sweep work dirs left behind by a
	// previous crash
	sessions, err := session.NewManager(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}
	if removed, err := sessions.CleanStale(cfg.StaleSessionAge); err != nil {
		logger.Warn("stale session sweep incomplete",
			slog.String("error", err.Error()),
		)
	} else if len(removed) > 0 {
		logger.Info("removed stale sessions",
			slog.Int("count", len(removed)),
			slog.Duration("max_age", cfg.StaleSessionAge),
		)
	}

	// Initialize media processor
	processor := media.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)

	// Initialize download scheduler
	scheduler, err := fetch.NewScheduler(processor,
		fetch.WithLogger(logger),
		fetch.WithBatchSize(cfg.DownloadBatchSize),
		fetch.WithBatchCooldown(cfg.BatchCooldown),
		fetch.WithMaxRetries(cfg.DownloadRetries),
		fetch.WithProviderDelay(cfg.ProviderDelay),
		fetch.WithFetchTimeouts(cfg.VideoFetchTimeout, cfg.ImageFetchTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create download scheduler: %w", err)
	}

	// Initialize render repository
	repo := render.NewMemoryRepository()

	// Initialize render service
	svc := render.NewService(repo, sessions, scheduler, processor, artifacts,
		render.WithServiceLogger(logger),
	)

	return &Dependencies{
		RenderService: svc,
		Artifacts:     artifacts,
	}, nil
}

// initArtifactStore creates the appropriate artifact backend based on configuration.
func initArtifactStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Store(cfg.ArtifactDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 artifact store: %w", err)
		}
		logger.Info("S3 artifact store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("create local artifact store: %w", err)
	}
	logger.Info("local artifact store configured",
		slog.String("artifact_dir", cfg.ArtifactDir),
	)
	return localStore, nil
}
