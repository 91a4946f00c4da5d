package render

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for persistent storage in production.
type MemoryRepository struct {
	mu      sync.RWMutex
	renders map[string]*Render
}

// NewMemoryRepository creates a new in-memory render repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		renders: make(map[string]*Render),
	}
}

// Save persists a render to the in-memory storage.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, rend *Render) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders[rend.ID] = rend.Clone()
	return nil
}

// FindByID retrieves a render by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Render, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rend, ok := r.renders[id]
	if !ok {
		return nil, ErrRenderNotFound
	}
	return rend.Clone(), nil
}

// List returns all renders in the repository.
// Returns clones to prevent external mutations.
func (r *MemoryRepository) List(_ context.Context) ([]*Render, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Render, 0, len(r.renders))
	for _, rend := range r.renders {
		result = append(result, rend.Clone())
	}
	return result, nil
}

// Delete removes a render from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.renders[id]; !ok {
		return ErrRenderNotFound
	}
	delete(r.renders, id)
	return nil
}
