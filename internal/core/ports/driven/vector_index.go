package driven

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MaxTopK caps the number of records a single query may return.
const MaxTopK = 50

// VectorIndex manages named vector collections in a hosted vector database.
// One collection holds all records for one document.
type VectorIndex interface {
	// CreateCollection creates a named collection with the given
	// dimension and metric. When a collection with the same name already
	// exists, behavior follows the caller-supplied policy: reuse it,
	// delete and recreate it, or fail with domain.ErrCollectionExists.
	CreateCollection(ctx context.Context, spec domain.Collection, policy domain.CreatePolicy) error

	// DeleteCollection removes the collection and all its records.
	// Returns domain.ErrCollectionNotFound if absent.
	DeleteCollection(ctx context.Context, name string) error

	// DescribeCollection returns the collection's configuration.
	// Returns domain.ErrCollectionNotFound if absent.
	DescribeCollection(ctx context.Context, name string) (*domain.Collection, error)

	// Upsert adds or overwrites vector records. Every record's vector
	// length must equal the collection dimension; otherwise the call
	// fails with domain.ErrDimensionMismatch and writes nothing.
	Upsert(ctx context.Context, collection string, records []*domain.VectorRecord) error

	// Query returns up to topK nearest records by the collection's
	// metric, ordered by descending similarity score, each carrying its
	// chunk text payload. topK must be in (0, MaxTopK].
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]*domain.QueryMatch, error)

	// HealthCheck verifies the vector database is reachable
	HealthCheck(ctx context.Context) error
}
