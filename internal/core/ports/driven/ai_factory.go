package driven

import (
	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// AIServiceFactory creates AI services based on configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	// Returns nil, nil if settings are not configured
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateGenerativeService creates a generative service from settings
	// Returns nil, nil if settings are not configured
	CreateGenerativeService(settings *domain.GenerationSettings) (GenerativeService, error)
}
