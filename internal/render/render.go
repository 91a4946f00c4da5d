// Package render provides the Render aggregate for tracking media-assembly
// requests through the pipeline, along with repository interfaces for
// persistence and the service that executes the pipeline itself.
package render

import (
	"errors"
	"sync"
	"time"

	"github.com/alexmu/montage-api/internal/render/id"
	"github.com/alexmu/montage-api/internal/timeline"
)

// Status represents the current stage of a Render.
// States follow the pipeline: fetch, normalize, concatenate.
type Status string

const (
	// StatusPending indicates the render was accepted but has not started.
	StatusPending Status = "PENDING"
	// StatusDownloading indicates source media is being fetched.
	StatusDownloading Status = "DOWNLOADING"
	// StatusNormalizing indicates fetched media is being transcoded to the
	// uniform intermediate format.
	StatusNormalizing Status = "NORMALIZING"
	// StatusConcatenating indicates intermediate clips are being joined.
	StatusConcatenating Status = "CONCATENATING"
	// StatusCompleted indicates the final artifact is ready.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the render encountered a fatal error.
	StatusFailed Status = "FAILED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:       {StatusDownloading, StatusFailed},
	StatusDownloading:   {StatusNormalizing, StatusFailed},
	StatusNormalizing:   {StatusConcatenating, StatusFailed},
	StatusConcatenating: {StatusCompleted, StatusFailed},
	StatusCompleted:     {},
	StatusFailed:        {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Render represents one media-assembly request. It carries the request's
// pipeline state and, once completed, the location of the final artifact.
type Render struct {
	mu sync.RWMutex

	// ID is the unique identifier for this render.
	ID string
	// Status is the current pipeline stage.
	Status Status
	// Error contains any error message if the render failed.
	Error string
	// ItemCount is the number of clips in the final artifact.
	ItemCount int
	// RealizedDuration is the measured duration of the final artifact in seconds.
	RealizedDuration float64
	// Failures records items that could not be fetched. A render with
	// failures can still complete; skipped slots are reported here.
	Failures []timeline.FailureRecord
	// ArtifactPath is the local path of the final video.
	ArtifactPath string
	// ArtifactURL is the S3 URL if the artifact was uploaded.
	ArtifactURL string
	// UploadToS3 indicates whether to push the artifact to S3.
	UploadToS3 bool
	// CreatedAt is when the render was accepted.
	CreatedAt time.Time
	// UpdatedAt is when the render was last updated.
	UpdatedAt time.Time
	// StartedAt is when pipeline execution started.
	StartedAt time.Time
	// CompletedAt is when pipeline execution finished.
	CompletedAt time.Time
}

// New creates a new Render with a generated ID in PENDING status.
func New() *Render {
	now := time.Now()
	return &Render{
		ID:        id.Generate(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a new Render with the specified ID in PENDING status.
// Useful for testing or when the ID is generated externally.
func NewWithID(renderID string) *Render {
	now := time.Now()
	return &Render{
		ID:        renderID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the render status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (r *Render) TransitionTo(status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !canTransition(r.Status, status) {
		return ErrInvalidTransition
	}

	r.Status = status
	r.UpdatedAt = time.Now()

	// Set timestamps based on state
	switch status {
	case StatusDownloading:
		r.StartedAt = r.UpdatedAt
	case StatusCompleted, StatusFailed:
		r.CompletedAt = r.UpdatedAt
	}

	return nil
}

// Start transitions the render from PENDING to DOWNLOADING.
func (r *Render) Start() error {
	return r.TransitionTo(StatusDownloading)
}

// Complete transitions the render to COMPLETED state.
func (r *Render) Complete() error {
	return r.TransitionTo(StatusCompleted)
}

// Fail transitions the render to FAILED state with an error message.
func (r *Render) Fail(errMsg string) error {
	r.mu.Lock()
	r.Error = errMsg
	r.mu.Unlock()
	return r.TransitionTo(StatusFailed)
}

// GetStatus returns the current render status (thread-safe).
func (r *Render) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// SetFailures records the fetch-stage failures for this render.
func (r *Render) SetFailures(failures []timeline.FailureRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = failures
	r.UpdatedAt = time.Now()
}

// SetResult records the final artifact location and summary figures.
func (r *Render) SetResult(artifactPath, artifactURL string, itemCount int, realized float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ArtifactPath = artifactPath
	r.ArtifactURL = artifactURL
	r.ItemCount = itemCount
	r.RealizedDuration = realized
	r.UpdatedAt = time.Now()
}

// IsTerminal returns true if the render is in a terminal state.
func (r *Render) IsTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Clone creates a deep copy of the render for safe reads.
func (r *Render) Clone() *Render {
	r.mu.RLock()
	defer r.mu.RUnlock()

	failures := make([]timeline.FailureRecord, len(r.Failures))
	copy(failures, r.Failures)

	return &Render{
		ID:               r.ID,
		Status:           r.Status,
		Error:            r.Error,
		ItemCount:        r.ItemCount,
		RealizedDuration: r.RealizedDuration,
		Failures:         failures,
		ArtifactPath:     r.ArtifactPath,
		ArtifactURL:      r.ArtifactURL,
		UploadToS3:       r.UploadToS3,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
	}
}
