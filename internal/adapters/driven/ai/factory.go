package ai

import (
	"fmt"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return NewGeminiEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// CreateGenerativeService creates a generative service from settings
func (f *Factory) CreateGenerativeService(settings *domain.GenerationSettings) (driven.GenerativeService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return NewGeminiGenerative(settings.APIKey, settings.Model, settings.BaseURL)
	case domain.AIProviderOpenAI:
		return NewOpenAIGenerative(settings.APIKey, settings.Model, settings.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
