package render

import (
	"context"
	"errors"
)

// ErrRenderNotFound is returned when a render cannot be found by ID.
var ErrRenderNotFound = errors.New("render not found")

// Repository defines the interface for render persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a render to the storage.
	// If the render already exists, it should be updated.
	Save(ctx context.Context, r *Render) error

	// FindByID retrieves a render by its unique identifier.
	// Returns ErrRenderNotFound if the render does not exist.
	FindByID(ctx context.Context, id string) (*Render, error)

	// List returns all renders.
	List(ctx context.Context) ([]*Render, error)

	// Delete removes a render from storage.
	// Returns ErrRenderNotFound if the render does not exist.
	Delete(ctx context.Context, id string) error
}
