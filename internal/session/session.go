// Package session manages isolated per-render working directories.
//
// Every render job owns exactly one session: a private directory where
// downloaded sources and normalized clips live until the final artifact has
// been moved out. Sessions are removed when the render finishes, whether it
// succeeded or failed, and a stale sweep catches directories orphaned by
// crashes.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Manager allocates session directories under a single base path.
type Manager struct {
	baseDir string
}

// NewManager creates a Manager rooted at baseDir, creating the directory if
// it does not exist. If baseDir is empty, a default under the system temp
// directory is used.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "montage")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create session base directory: %w", err)
	}

	return &Manager{baseDir: baseDir}, nil
}

// BaseDir returns the directory sessions are created under.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Create allocates a fresh, empty session directory with a random identifier.
func (m *Manager) Create() (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.baseDir, id)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &Session{ID: id, Dir: dir}, nil
}

// CleanStale removes session directories whose last modification is older
// than maxAge. It is meant to run at startup to reclaim space left behind by
// renders that never got to clean up. Removal continues past individual
// failures; the first error is returned after the sweep completes.
func (m *Manager) CleanStale(maxAge time.Duration) ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session base directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)

	var removed []string
	var firstErr error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to stat session directory %s: %w", entry.Name(), err)
			}
			continue
		}

		if info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(m.baseDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to remove stale session %s: %w", entry.Name(), err)
			}
			continue
		}
		removed = append(removed, dir)
	}

	return removed, firstErr
}

// Session is one render's private working directory. All intermediate files
// for the render are created inside Dir and disappear together on Cleanup.
type Session struct {
	ID  string
	Dir string
}

// Path returns the absolute path of a file inside the session directory.
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// SourcePath names the downloaded source file for the item at index.
func (s *Session) SourcePath(index int, ext string) string {
	return s.Path(fmt.Sprintf("source_%d%s", index, ext))
}

// ClipPath names the normalized intermediate clip for the item at index.
func (s *Session) ClipPath(index int) string {
	return s.Path(fmt.Sprintf("clip_%d.mp4", index))
}

// OutputPath names the assembled video inside the session directory. The
// file is moved to the artifact store once assembly succeeds.
func (s *Session) OutputPath() string {
	return s.Path("output.mp4")
}

// Cleanup removes the session directory and everything inside it. It is safe
// to call more than once.
func (s *Session) Cleanup() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}
