package domain

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderGemini AIProvider = "gemini"
	AIProviderOpenAI AIProvider = "openai"
)

// RequiresAPIKey reports whether the provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI:
		return true
	}
	return false
}

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings configures the generative service
type GenerationSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if generation settings are properly configured
func (g *GenerationSettings) IsConfigured() bool {
	if g.Provider == "" {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}
