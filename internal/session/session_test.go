package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	t.Run("creates base directory if not exists", func(t *testing.T) {
		baseDir := filepath.Join(t.TempDir(), "sessions")

		manager, err := NewManager(baseDir)
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}

		if manager.BaseDir() != baseDir {
			t.Errorf("BaseDir() = %v, want %v", manager.BaseDir(), baseDir)
		}

		info, err := os.Stat(baseDir)
		if err != nil {
			t.Fatalf("base directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		manager, err := NewManager("")
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "montage")
		if manager.BaseDir() != expected {
			t.Errorf("BaseDir() = %v, want %v", manager.BaseDir(), expected)
		}
	})
}

func TestManager_Create(t *testing.T) {
	manager := setupTestManager(t)

	first, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if first.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if !strings.HasPrefix(first.Dir, manager.BaseDir()) {
		t.Errorf("session dir %v not under base dir %v", first.Dir, manager.BaseDir())
	}

	info, err := os.Stat(first.Dir)
	if err != nil {
		t.Fatalf("session directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}

	second, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.Dir == first.Dir {
		t.Error("expected distinct directories for distinct sessions")
	}
}

func TestSession_Paths(t *testing.T) {
	sess := &Session{ID: "abc", Dir: filepath.Join("base", "abc")}

	if got, want := sess.Path("list.txt"), filepath.Join("base", "abc", "list.txt"); got != want {
		t.Errorf("Path() = %v, want %v", got, want)
	}
	if got, want := sess.SourcePath(3, ".jpg"), filepath.Join("base", "abc", "source_3.jpg"); got != want {
		t.Errorf("SourcePath() = %v, want %v", got, want)
	}
	if got, want := sess.ClipPath(0), filepath.Join("base", "abc", "clip_0.mp4"); got != want {
		t.Errorf("ClipPath() = %v, want %v", got, want)
	}
	if got, want := sess.OutputPath(), filepath.Join("base", "abc", "output.mp4"); got != want {
		t.Errorf("OutputPath() = %v, want %v", got, want)
	}
}

func TestSession_Cleanup(t *testing.T) {
	manager := setupTestManager(t)

	sess, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := os.WriteFile(sess.Path("clip_0.mp4"), []byte("data"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := sess.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if _, err := os.Stat(sess.Dir); !os.IsNotExist(err) {
		t.Errorf("expected directory to be removed, stat error = %v", err)
	}

	// Second call is a no-op.
	if err := sess.Cleanup(); err != nil {
		t.Errorf("Cleanup() second call error = %v", err)
	}
}

func TestManager_CleanStale(t *testing.T) {
	manager := setupTestManager(t)

	stale, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	fresh, err := manager.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale.Dir, old, old); err != nil {
		t.Fatalf("failed to age directory: %v", err)
	}

	// A plain file in the base directory must be left alone.
	filePath := filepath.Join(manager.BaseDir(), "notes.txt")
	if err := os.WriteFile(filePath, []byte("keep"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	removed, err := manager.CleanStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanStale() error = %v", err)
	}

	if len(removed) != 1 || removed[0] != stale.Dir {
		t.Errorf("removed = %v, want [%v]", removed, stale.Dir)
	}
	if _, err := os.Stat(stale.Dir); !os.IsNotExist(err) {
		t.Errorf("expected stale directory removed, stat error = %v", err)
	}
	if _, err := os.Stat(fresh.Dir); err != nil {
		t.Errorf("fresh directory should survive: %v", err)
	}
	if _, err := os.Stat(filePath); err != nil {
		t.Errorf("plain file should survive: %v", err)
	}
}

func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(filepath.Join(t.TempDir(), "sessions"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return manager
}
