package domain

import "sync"

// RuntimeConfig tracks which AI capabilities are available at runtime.
// Embedding or generation providers may be unconfigured or unreachable;
// the chat and ingestion services degrade accordingly.
type RuntimeConfig struct {
	mu sync.RWMutex

	embeddingAvailable  bool
	generationAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with no services available.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{}
}

// EmbeddingAvailable reports whether an embedding service is configured.
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// GenerationAvailable reports whether a generative service is configured.
func (c *RuntimeConfig) GenerationAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationAvailable
}

// SetEmbeddingAvailable updates the embedding capability flag.
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetGenerationAvailable updates the generation capability flag.
func (c *RuntimeConfig) SetGenerationAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationAvailable = available
}

// CanIngest reports whether documents can be embedded and indexed.
func (c *RuntimeConfig) CanIngest() bool {
	return c.EmbeddingAvailable()
}

// CanAnswer reports whether chat can produce grounded answers.
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.GenerationAvailable()
}
