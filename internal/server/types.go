// Package server provides the HTTP server for the montage API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// RenderItem is one entry of the requested content sequence. Order in the
// request body is render order.
type RenderItem struct {
	// Type is the content kind, "video" or "image".
	Type string `json:"type" validate:"required,oneof=video image"`
	// ContentID keys into the videoSources or imageSources map.
	ContentID string `json:"contentId" validate:"required"`
	// Duration is the target screen time in seconds. May be zero when the
	// request carries an aggregate totalDuration instead.
	Duration float64 `json:"duration" validate:"gte=0"`
	// SectionIndex groups items into narrative sections.
	SectionIndex int `json:"sectionIndex" validate:"gte=0"`
}

// SourceRef is a resolved download location for a content ID. Bad or missing
// entries are not a request error; the pipeline substitutes placeholders.
type SourceRef struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CreateRenderRequest is the HTTP request body for creating a new render.
type CreateRenderRequest struct {
	// Items is the ordered content sequence.
	Items []RenderItem `json:"items" validate:"required,min=1,dive"`
	// VideoSources maps video content IDs to download locations.
	VideoSources map[string]SourceRef `json:"videoSources"`
	// ImageSources maps image content IDs to download locations.
	ImageSources map[string]SourceRef `json:"imageSources"`
	// TotalDuration, when positive, is the aggregate target length in seconds
	// and enables duration reconciliation across the sequence.
	TotalDuration float64 `json:"totalDuration" validate:"gte=0"`
	// S3Upload indicates whether to upload the final artifact to S3.
	S3Upload bool `json:"s3Upload"`
}

// CreateRenderResponse is the HTTP response after creating a render.
type CreateRenderResponse struct {
	// ID is the unique identifier for the created render.
	ID string `json:"id"`
	// Status is the initial render status.
	Status string `json:"status"`
}

// RenderFailure reports one sequence slot that could not be fetched.
type RenderFailure struct {
	// Index is the slot position in the requested sequence.
	Index int `json:"index"`
	// Reason is the human-readable fetch failure.
	Reason string `json:"reason"`
}

// RenderResponse is the HTTP response for getting render details.
type RenderResponse struct {
	// ID is the unique identifier for the render.
	ID string `json:"id"`
	// Status is the current render status.
	Status string `json:"status"`
	// Error contains the failure reason if the render failed.
	Error string `json:"error,omitempty"`
	// ItemCount is the number of clips in the finished montage.
	ItemCount int `json:"itemCount,omitempty"`
	// RealizedDuration is the probed length of the finished montage in seconds.
	RealizedDuration float64 `json:"realizedDuration,omitempty"`
	// Failures lists sequence slots that were substituted or dropped.
	Failures []RenderFailure `json:"failures,omitempty"`
	// VideoURL is where the finished montage can be fetched. An S3 URL when
	// the render uploaded, otherwise a path under /videos.
	VideoURL string `json:"videoUrl,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
