package driven

import (
	"context"
)

// EmbeddingService turns chunk text into vectors for the document's
// collection. Ingestion calls Embed with whole batches of chunks; chat
// embeds one rewritten question at a time via EmbedQuery.
type EmbeddingService interface {
	// Embed embeds a batch of chunk texts, one vector per input, each of
	// Dimensions() length.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search question. Providers that distinguish
	// document and query task types apply the query variant here.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the vector length this service produces; the
	// collection is created with the same dimension.
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
