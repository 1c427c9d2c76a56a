package driven

import (
	"context"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByName retrieves the most recently uploaded document with the
	// given normalized name. Names are collision-prone; IDs are not.
	GetByName(ctx context.Context, name string) (*domain.Document, error)

	// List retrieves documents ordered by upload time, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)

	// ListIndexedBefore retrieves indexed documents whose indexing
	// completed before the cutoff (for retention sweeps)
	ListIndexedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Document, error)

	// Delete deletes a document
	Delete(ctx context.Context, id string) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}
