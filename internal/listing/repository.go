package listing

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the system of record for properties.
// Implementations return ErrNotFound for a missing property.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Property, error)
	Get(ctx context.Context, id uuid.UUID) (Property, error)
	Create(ctx context.Context, p Property) (Property, error)
	// Update loads the property, applies fn and stores the result atomically
	// where the backend allows it.
	Update(ctx context.Context, id uuid.UUID, fn func(p *Property) error) (Property, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
