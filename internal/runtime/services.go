package runtime

import (
	"sync"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Services holds references to dynamically configurable AI services.
// Embedding and generation providers can be swapped while the process
// runs; chat and ingestion degrade when one is missing.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	embeddingService  driven.EmbeddingService
	generativeService driven.GenerativeService
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// GenerativeService returns the current generative service (may be nil)
func (s *Services) GenerativeService() driven.GenerativeService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generativeService
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetGenerativeService updates the generative service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetGenerativeService(svc driven.GenerativeService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generativeService != nil {
		_ = s.generativeService.Close()
	}

	s.generativeService = svc
	s.config.SetGenerationAvailable(svc != nil)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.generativeService != nil {
		_ = s.generativeService.Close()
		s.generativeService = nil
	}
	s.config.SetEmbeddingAvailable(false)
	s.config.SetGenerationAvailable(false)
	return nil
}
