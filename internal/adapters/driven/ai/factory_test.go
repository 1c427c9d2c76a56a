package ai

import (
	"errors"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func TestFactory_CreateEmbeddingService(t *testing.T) {
	factory := NewFactory()

	t.Run("nil settings", func(t *testing.T) {
		svc, err := factory.CreateEmbeddingService(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if svc != nil {
			t.Error("expected nil service for nil settings")
		}
	})

	t.Run("unconfigured settings", func(t *testing.T) {
		svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderGemini,
		})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if svc != nil {
			t.Error("expected nil service without an API key")
		}
	})

	t.Run("gemini", func(t *testing.T) {
		svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderGemini,
			APIKey:   "key-test",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := svc.(*GeminiEmbedding); !ok {
			t.Errorf("expected *GeminiEmbedding, got %T", svc)
		}
		if svc.Dimensions() != 768 {
			t.Errorf("expected 768 dimensions, got %d", svc.Dimensions())
		}
	})

	t.Run("openai", func(t *testing.T) {
		svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "sk-test",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := svc.(*OpenAIEmbedding); !ok {
			t.Errorf("expected *OpenAIEmbedding, got %T", svc)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: "mystery",
			APIKey:   "key",
		})
		if !errors.Is(err, domain.ErrInvalidProvider) {
			t.Errorf("expected ErrInvalidProvider, got %v", err)
		}
	})
}

func TestFactory_CreateGenerativeService(t *testing.T) {
	factory := NewFactory()

	t.Run("nil settings", func(t *testing.T) {
		svc, err := factory.CreateGenerativeService(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if svc != nil {
			t.Error("expected nil service for nil settings")
		}
	})

	t.Run("gemini", func(t *testing.T) {
		svc, err := factory.CreateGenerativeService(&domain.GenerationSettings{
			Provider: domain.AIProviderGemini,
			APIKey:   "key-test",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.Model() != "gemini-1.5-flash" {
			t.Errorf("expected default model gemini-1.5-flash, got %s", svc.Model())
		}
	})

	t.Run("openai", func(t *testing.T) {
		svc, err := factory.CreateGenerativeService(&domain.GenerationSettings{
			Provider: domain.AIProviderOpenAI,
			Model:    "gpt-4o",
			APIKey:   "sk-test",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.Model() != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %s", svc.Model())
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := factory.CreateGenerativeService(&domain.GenerationSettings{
			Provider: "mystery",
			APIKey:   "key",
		})
		if !errors.Is(err, domain.ErrInvalidProvider) {
			t.Errorf("expected ErrInvalidProvider, got %v", err)
		}
	})
}
