package render

import (
	"context"
	"testing"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rend := New()

	err := repo.Save(ctx, rend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify it was saved
	saved, err := repo.FindByID(ctx, rend.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != rend.ID {
		t.Errorf("expected ID %s, got %s", rend.ID, saved.ID)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rend := New()

	// Save initial
	_ = repo.Save(ctx, rend)

	// Update render
	_ = rend.Start()
	rend.SetResult("/tmp/out.mp4", "", 3, 12.0)
	_ = repo.Save(ctx, rend)

	// Verify update
	saved, _ := repo.FindByID(ctx, rend.ID)
	if saved.Status != StatusDownloading {
		t.Errorf("expected status %s, got %s", StatusDownloading, saved.Status)
	}
	if saved.ItemCount != 3 {
		t.Errorf("expected item count 3, got %d", saved.ItemCount)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "nonexistent")
	if err != ErrRenderNotFound {
		t.Errorf("expected ErrRenderNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rend := New()
	_ = repo.Save(ctx, rend)

	// Get render
	found, _ := repo.FindByID(ctx, rend.ID)

	// Modify returned render
	found.ItemCount = 99
	_ = found.Start()

	// Original in repo should be unchanged
	original, _ := repo.FindByID(ctx, rend.ID)
	if original.ItemCount != 0 {
		t.Error("modifying returned render should not affect repository")
	}
	if original.Status != StatusPending {
		t.Error("modifying returned render status should not affect repository")
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	// Empty list
	renders, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(renders) != 0 {
		t.Errorf("expected 0 renders, got %d", len(renders))
	}

	// Add renders
	rend1 := New()
	rend2 := New()
	_ = repo.Save(ctx, rend1)
	_ = repo.Save(ctx, rend2)

	renders, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(renders) != 2 {
		t.Errorf("expected 2 renders, got %d", len(renders))
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	rend := New()
	_ = repo.Save(ctx, rend)

	err := repo.Delete(ctx, rend.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify deleted
	_, err = repo.FindByID(ctx, rend.ID)
	if err != ErrRenderNotFound {
		t.Errorf("expected ErrRenderNotFound, got %v", err)
	}
}

func TestMemoryRepository_Delete_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	err := repo.Delete(ctx, "nonexistent")
	if err != ErrRenderNotFound {
		t.Errorf("expected ErrRenderNotFound, got %v", err)
	}
}

func TestMemoryRepository_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	done := make(chan bool)

	// Concurrent writes
	go func() {
		for i := 0; i < 100; i++ {
			rend := New()
			_ = repo.Save(ctx, rend)
		}
		done <- true
	}()

	// Concurrent reads
	go func() {
		for i := 0; i < 100; i++ {
			_, _ = repo.List(ctx)
		}
		done <- true
	}()

	<-done
	<-done
	// If no race conditions, test passes
}
