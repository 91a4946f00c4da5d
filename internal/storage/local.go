package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// ErrArtifactNotFound is returned when an artifact name resolves to nothing.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrInvalidArtifactName is returned for names that could escape the
// artifact directory.
var ErrInvalidArtifactName = errors.New("invalid artifact name")

// LocalStore implements the Store interface using local disk.
// It keeps finished videos in a configurable directory and does not
// support S3 operations unless wrapped with S3Store.
type LocalStore struct {
	artifactDir string
}

// NewLocalStore creates a new LocalStore instance.
// The artifactDir parameter specifies where finished videos are kept.
// If artifactDir is empty, a default under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStore(artifactDir string) (*LocalStore, error) {
	if artifactDir == "" {
		artifactDir = filepath.Join(os.TempDir(), "montage", "artifacts")
	}

	if err := os.MkdirAll(artifactDir, 0750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	return &LocalStore{artifactDir: artifactDir}, nil
}

// ArtifactDir returns the artifact directory path.
func (s *LocalStore) ArtifactDir() string {
	return s.artifactDir
}

// SaveArtifact moves a finished video into the artifact directory. The
// session directory may live on another filesystem, so a failed rename
// falls back to copy-and-remove.
func (s *LocalStore) SaveArtifact(ctx context.Context, srcPath, name string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := validArtifactName(name); err != nil {
		return "", err
	}

	dst := filepath.Join(s.artifactDir, name)
	if err := moveFile(srcPath, dst); err != nil {
		return "", fmt.Errorf("move artifact: %w", err)
	}

	return dst, nil
}

// ArtifactPath resolves an artifact name to its on-disk path.
func (s *LocalStore) ArtifactPath(name string) (string, error) {
	if err := validArtifactName(name); err != nil {
		return "", err
	}

	path := filepath.Join(s.artifactDir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrArtifactNotFound
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}

	return path, nil
}

// UploadArtifact is not supported by LocalStore and returns ErrS3NotConfigured.
func (s *LocalStore) UploadArtifact(_ context.Context, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

// validArtifactName rejects empty names, path separators, and dot prefixes
// so a requested name can never resolve outside the artifact directory.
func validArtifactName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	return nil
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy artifact data: %w", err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close destination: %w", err)
	}

	return os.Remove(src)
}
