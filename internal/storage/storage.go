// Package storage provides persistence for finished render artifacts.
// It defines the Store interface (port) for hexagonal architecture and
// implementations for local disk and S3.
package storage

import (
	"context"
)

// Store defines the interface for artifact persistence. Renders hand their
// assembled video to the store, which keeps it on local disk and optionally
// mirrors it to S3 for delivery.
type Store interface {
	// SaveArtifact moves a finished video from srcPath into the artifact
	// directory under the given name and returns its new path.
	SaveArtifact(ctx context.Context, srcPath, name string) (path string, err error)

	// ArtifactPath resolves an artifact name to its on-disk path.
	// Returns ErrArtifactNotFound if no such artifact exists.
	ArtifactPath(name string) (string, error)

	// UploadArtifact uploads a stored artifact to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadArtifact(ctx context.Context, artifactPath string) (url string, err error)
}
