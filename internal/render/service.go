package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alexmu/montage-api/internal/fetch"
	"github.com/alexmu/montage-api/internal/media"
	"github.com/alexmu/montage-api/internal/session"
	"github.com/alexmu/montage-api/internal/storage"
	"github.com/alexmu/montage-api/internal/timeline"
)

// Static errors for render service operations.
var (
	// ErrNoItems is returned when a render request has an empty sequence.
	ErrNoItems = errors.New("render: content sequence is empty")
	// ErrInvalidTotalDuration is returned for a negative aggregate duration.
	ErrInvalidTotalDuration = errors.New("render: total duration must be positive")
)

// Input contains the parameters for one render request.
type Input struct {
	// Items is the ordered content sequence to assemble.
	Items []timeline.Item
	// VideoSources maps video content IDs to their download locations.
	VideoSources map[string]timeline.SourceDescriptor
	// ImageSources maps image content IDs to their download locations.
	ImageSources map[string]timeline.SourceDescriptor
	// TotalDuration, when positive, requests aggregate-duration mode: items
	// carry no authoritative durations and the reconciler allocates them to
	// hit this target. When zero, every item's own duration is used as-is.
	TotalDuration float64
	// UploadToS3 requests an S3 upload of the final artifact.
	UploadToS3 bool
}

// Result contains the outcome of a completed render.
type Result struct {
	// RenderID is the unique identifier of the render.
	RenderID string
	// Status is the final render status.
	Status Status
	// ArtifactPath is the local path of the final video.
	ArtifactPath string
	// ArtifactURL is the S3 URL if the artifact was uploaded.
	ArtifactURL string
	// ItemCount is the number of clips in the final video.
	ItemCount int
	// RealizedDuration is the measured duration of the final video in seconds.
	RealizedDuration float64
	// Failures lists items that were skipped or replaced by placeholders.
	Failures []timeline.FailureRecord
}

// Service orchestrates the assembly pipeline: fetch the sources, reconcile
// durations when only an aggregate target is given, normalize every item
// into a uniform intermediate clip, and concatenate them into one artifact.
type Service struct {
	repo      Repository
	sessions  *session.Manager
	scheduler *fetch.Scheduler
	processor media.Processor
	artifacts storage.Store
	allocator timeline.Allocator
	logger    *slog.Logger
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithAllocator replaces the duration allocation strategy used in
// aggregate-duration mode.
func WithAllocator(a timeline.Allocator) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.allocator = a
		}
	}
}

// WithServiceLogger sets the logger for pipeline progress and failures.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a render service wired to its collaborators.
func NewService(repo Repository, sessions *session.Manager, scheduler *fetch.Scheduler, processor media.Processor, artifacts storage.Store, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		sessions:  sessions,
		scheduler: scheduler,
		processor: processor,
		artifacts: artifacts,
		allocator: timeline.NewLocalSearch(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRender validates the request shape and persists a new render in
// PENDING status. Per-item problems (bad durations, unresolved content) are
// not checked here; the fetch stage absorbs those and reports them as
// failures.
func (s *Service) CreateRender(ctx context.Context, input Input) (*Render, error) {
	if len(input.Items) == 0 {
		return nil, ErrNoItems
	}
	if input.TotalDuration < 0 {
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidTotalDuration, input.TotalDuration)
	}

	rend := New()
	rend.UploadToS3 = input.UploadToS3

	s.logger.Info("creating new render",
		slog.String("render_id", rend.ID),
		slog.Int("items", len(input.Items)),
		slog.Float64("total_duration", input.TotalDuration),
		slog.Bool("upload_to_s3", input.UploadToS3),
	)

	if err := s.repo.Save(ctx, rend); err != nil {
		s.logger.Error("failed to save render",
			slog.String("render_id", rend.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return rend, nil
}

// GetRender retrieves a render by ID.
func (s *Service) GetRender(ctx context.Context, id string) (*Render, error) {
	return s.repo.FindByID(ctx, id)
}

// Run executes the assembly pipeline for a previously created render. It is
// meant to run in the background with a context detached from the request.
// Fatal pipeline errors mark the render FAILED and are returned to the
// caller for logging.
func (s *Service) Run(ctx context.Context, renderID string, input Input) (*Result, error) {
	rend, err := s.repo.FindByID(ctx, renderID)
	if err != nil {
		return nil, err
	}

	result, runErr := s.process(ctx, rend, input)
	if runErr != nil {
		s.failRender(ctx, rend, runErr)
		return nil, runErr
	}
	return result, nil
}

// process walks the render through every pipeline stage inside one session
// directory, which is removed on every exit path.
func (s *Service) process(ctx context.Context, rend *Render, input Input) (*Result, error) {
	if err := s.advance(ctx, rend, StatusDownloading); err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := sess.Cleanup(); err != nil {
			s.logger.Warn("session cleanup failed",
				slog.String("render_id", rend.ID),
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	items := make([]timeline.Item, len(input.Items))
	copy(items, input.Items)

	aggregate := input.TotalDuration > 0
	if aggregate {
		// Provisional equal shares so every task, including one that ends
		// up as a placeholder, carries a usable duration before the
		// reconciler assigns real ones.
		share := input.TotalDuration / float64(len(items))
		for i := range items {
			items[i].Duration = share
		}
	}

	mediaItems, failures, err := s.scheduler.Fetch(ctx, sess, items, fetch.Sources{
		Videos: input.VideoSources,
		Images: input.ImageSources,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch stage: %w", err)
	}
	rend.SetFailures(failures)

	if aggregate {
		if err := s.reconcileDurations(mediaItems, input.TotalDuration); err != nil {
			return nil, err
		}
	}

	if err := s.advance(ctx, rend, StatusNormalizing); err != nil {
		return nil, err
	}

	clips, assigned, err := s.normalizeAll(ctx, sess, mediaItems)
	if err != nil {
		return nil, err
	}

	if err := s.advance(ctx, rend, StatusConcatenating); err != nil {
		return nil, err
	}

	output := sess.OutputPath()
	if err := s.processor.Concatenate(ctx, clips, output); err != nil {
		return nil, fmt.Errorf("assemble final video: %w", err)
	}

	realized, err := s.processor.Duration(ctx, output)
	if err != nil {
		// Reporting only; fall back to the sum of assigned durations.
		s.logger.Warn("could not probe final artifact duration",
			slog.String("render_id", rend.ID),
			slog.String("error", err.Error()),
		)
		realized = assigned
	}

	artifactPath, artifactURL, err := s.storeArtifact(ctx, rend, output)
	if err != nil {
		return nil, err
	}

	rend.SetResult(artifactPath, artifactURL, len(mediaItems), realized)
	if err := s.advance(ctx, rend, StatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("render completed",
		slog.String("render_id", rend.ID),
		slog.Int("items", len(mediaItems)),
		slog.Int("skipped", len(failures)),
		slog.Float64("duration", realized),
		slog.String("artifact", artifactPath),
	)

	return &Result{
		RenderID:         rend.ID,
		Status:           rend.GetStatus(),
		ArtifactPath:     artifactPath,
		ArtifactURL:      artifactURL,
		ItemCount:        len(mediaItems),
		RealizedDuration: realized,
		Failures:         failures,
	}, nil
}

// reconcileDurations replaces every item's provisional duration with an
// allocated one so their sum hits the aggregate target.
func (s *Service) reconcileDurations(mediaItems []timeline.MediaItem, total float64) error {
	prefs := make([]timeline.Pref, len(mediaItems))
	for i, m := range mediaItems {
		if m.Type == timeline.TypeVideo && m.NativeDuration > 0 {
			prefs[i] = timeline.VideoPref(m.NativeDuration)
		} else {
			prefs[i] = timeline.ImagePref()
		}
	}

	durations, err := s.allocator.Allocate(prefs, total)
	if err != nil {
		return fmt.Errorf("allocate durations: %w", err)
	}
	for i := range mediaItems {
		mediaItems[i].Duration = durations[i]
	}
	return nil
}

// normalizeAll transcodes every media item into a uniform intermediate clip
// of its assigned duration. Any single failure here is fatal to the render:
// the file was fetched and verified, so failing to transcode it means the
// source is genuinely unusable.
func (s *Service) normalizeAll(ctx context.Context, sess *session.Session, mediaItems []timeline.MediaItem) ([]string, float64, error) {
	clips := make([]string, len(mediaItems))
	var assigned float64

	for i, m := range mediaItems {
		clip := sess.ClipPath(i)

		var err error
		if m.Type == timeline.TypeImage {
			err = s.processor.ImageToClip(ctx, m.LocalPath, clip, m.Duration)
		} else {
			err = s.processor.NormalizeVideo(ctx, m.LocalPath, clip, m.Duration)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("normalize item %d: %w", m.OriginalIndex, err)
		}

		clips[i] = clip
		assigned += m.Duration
	}

	return clips, assigned, nil
}

// storeArtifact moves the assembled video into the artifact store and
// optionally uploads it to S3. Upload failures are logged, not fatal; the
// local artifact remains servable.
func (s *Service) storeArtifact(ctx context.Context, rend *Render, output string) (string, string, error) {
	name := fmt.Sprintf("%s.mp4", rend.ID)
	artifactPath, err := s.artifacts.SaveArtifact(ctx, output, name)
	if err != nil {
		return "", "", fmt.Errorf("store artifact: %w", err)
	}

	var artifactURL string
	if rend.UploadToS3 {
		url, err := s.artifacts.UploadArtifact(ctx, artifactPath)
		if err != nil {
			s.logger.Error("artifact upload failed",
				slog.String("render_id", rend.ID),
				slog.String("error", err.Error()),
			)
		} else {
			artifactURL = url
		}
	}

	return artifactPath, artifactURL, nil
}

// advance transitions the render to the next stage and persists it so
// status polls observe pipeline progress.
func (s *Service) advance(ctx context.Context, rend *Render, status Status) error {
	if err := rend.TransitionTo(status); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, rend); err != nil {
		return fmt.Errorf("save render: %w", err)
	}
	return nil
}

// failRender marks the render FAILED and persists it. Errors here are
// logged only; the original pipeline error takes precedence.
func (s *Service) failRender(ctx context.Context, rend *Render, cause error) {
	s.logger.Error("render failed",
		slog.String("render_id", rend.ID),
		slog.String("error", cause.Error()),
	)

	if err := rend.Fail(cause.Error()); err != nil {
		s.logger.Error("could not mark render failed",
			slog.String("render_id", rend.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.repo.Save(ctx, rend); err != nil {
		s.logger.Error("failed to save failed render",
			slog.String("render_id", rend.ID),
			slog.String("error", err.Error()),
		)
	}
}
