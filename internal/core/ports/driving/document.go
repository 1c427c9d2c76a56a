package driving

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// DocumentService exposes document lifecycle operations
type DocumentService interface {
	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)

	// Delete removes a document together with its vector collection
	Delete(ctx context.Context, id string) error
}
