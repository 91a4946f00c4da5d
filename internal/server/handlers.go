package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/alexmu/montage-api/internal/render"
	"github.com/alexmu/montage-api/internal/storage"
	"github.com/alexmu/montage-api/internal/timeline"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *render.Service
	artifacts      storage.Store
	validator      *validator.Validate
	logger         *slog.Logger
	enableAsyncRun bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncRun enables or disables background pipeline execution.
// When disabled, CreateRender only records the render and returns
// immediately without starting the pipeline.
func WithAsyncRun(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncRun = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *render.Service, artifacts storage.Store, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		artifacts:      artifacts,
		validator:      validator.New(),
		logger:         logger,
		enableAsyncRun: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /healthz requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateRender handles POST /renders requests.
func (h *Handlers) CreateRender(w http.ResponseWriter, r *http.Request) {
	var req CreateRenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := toInput(req)

	// Record the render first (synchronously)
	rend, err := h.service.CreateRender(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create render",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create render", "RENDER_CREATION_FAILED")
		return
	}

	// Run the pipeline in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncRun {
		go func(ctx context.Context, renderID string, in render.Input) {
			if _, runErr := h.service.Run(ctx, renderID, in); runErr != nil {
				h.logger.Error("background render failed",
					slog.String("render_id", renderID),
					slog.String("error", runErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), rend.ID, input)
	}

	h.logger.Info("render accepted",
		slog.String("render_id", rend.ID),
		slog.Int("items", len(req.Items)),
		slog.Float64("total_duration", req.TotalDuration),
		slog.Bool("s3_upload", req.S3Upload),
	)

	writeJSON(w, http.StatusAccepted, CreateRenderResponse{
		ID:     rend.ID,
		Status: string(rend.Status),
	})
}

// GetRender handles GET /renders/{id} requests.
func (h *Handlers) GetRender(w http.ResponseWriter, r *http.Request) {
	renderID := r.PathValue("id")
	if renderID == "" {
		writeError(w, http.StatusBadRequest, "render ID is required", "MISSING_RENDER_ID")
		return
	}

	rend, err := h.service.GetRender(r.Context(), renderID)
	if err != nil {
		if errors.Is(err, render.ErrRenderNotFound) {
			writeError(w, http.StatusNotFound, "render not found", "RENDER_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get render",
			slog.String("render_id", renderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get render", "RENDER_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toRenderResponse(rend))
}

// GetVideo handles GET /videos/{filename} requests. ServeFile gives range
// request support, so players can seek the artifact.
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required", "MISSING_FILENAME")
		return
	}

	path, err := h.artifacts.ArtifactPath(filename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrArtifactNotFound):
			writeError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
		case errors.Is(err, storage.ErrInvalidArtifactName):
			writeError(w, http.StatusBadRequest, "invalid filename", "INVALID_FILENAME")
		default:
			h.logger.Error("failed to resolve artifact",
				slog.String("filename", filename),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to resolve video", "VIDEO_RESOLVE_FAILED")
		}
		return
	}

	http.ServeFile(w, r, path)
}

// toInput converts the request body into the domain input.
func toInput(req CreateRenderRequest) render.Input {
	items := make([]timeline.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = timeline.Item{
			Type:         timeline.ItemType(it.Type),
			ContentID:    it.ContentID,
			Duration:     it.Duration,
			SectionIndex: it.SectionIndex,
		}
	}
	return render.Input{
		Items:         items,
		VideoSources:  toSources(req.VideoSources),
		ImageSources:  toSources(req.ImageSources),
		TotalDuration: req.TotalDuration,
		UploadToS3:    req.S3Upload,
	}
}

func toSources(refs map[string]SourceRef) map[string]timeline.SourceDescriptor {
	if len(refs) == 0 {
		return nil
	}
	out := make(map[string]timeline.SourceDescriptor, len(refs))
	for id, ref := range refs {
		out[id] = timeline.SourceDescriptor{URL: ref.URL, Width: ref.Width, Height: ref.Height}
	}
	return out
}

func toRenderResponse(rend *render.Render) RenderResponse {
	resp := RenderResponse{
		ID:     rend.ID,
		Status: string(rend.Status),
		Error:  rend.Error,
	}

	for _, f := range rend.Failures {
		resp.Failures = append(resp.Failures, RenderFailure{Index: f.Index, Reason: f.Reason})
	}

	if rend.Status == render.StatusCompleted {
		resp.ItemCount = rend.ItemCount
		resp.RealizedDuration = rend.RealizedDuration
		switch {
		case rend.ArtifactURL != "":
			resp.VideoURL = rend.ArtifactURL
		case rend.ArtifactPath != "":
			resp.VideoURL = "/videos/" + filepath.Base(rend.ArtifactPath)
		}
	}

	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
