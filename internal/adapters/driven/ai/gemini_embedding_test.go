package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func TestNewGeminiEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiEmbedding("", "text-embedding-004", "")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNewGeminiEmbedding_Defaults(t *testing.T) {
	svc, err := NewGeminiEmbedding("key-test", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emb := svc.(*GeminiEmbedding)
	if emb.model != "text-embedding-004" {
		t.Errorf("expected default model text-embedding-004, got %s", emb.model)
	}
	if svc.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", svc.Dimensions())
	}
}

func TestGeminiEmbedding_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("expected batchEmbedContents path, got %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key-test" {
			t.Error("expected x-goog-api-key header")
		}

		var req geminiBatchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Requests) != 2 {
			t.Errorf("expected 2 batch entries, got %d", len(req.Requests))
		}
		if req.Requests[0].TaskType != "RETRIEVAL_DOCUMENT" {
			t.Errorf("expected RETRIEVAL_DOCUMENT task type, got %s", req.Requests[0].TaskType)
		}

		resp := geminiBatchEmbedResponse{}
		resp.Embeddings = []struct {
			Values []float32 `json:"values"`
		}{
			{Values: []float32{0.1, 0.2}},
			{Values: []float32{0.3, 0.4}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewGeminiEmbedding("key-test", "text-embedding-004", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if result[1][0] != 0.3 {
		t.Error("unexpected embedding values")
	}
}

func TestGeminiEmbedding_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := geminiBatchEmbedResponse{}
		resp.Embeddings = []struct {
			Values []float32 `json:"values"`
		}{
			{Values: []float32{0.1}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewGeminiEmbedding("key-test", "text-embedding-004", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Embed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestGeminiEmbedding_EmbedQuery_TaskType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":embedContent") {
			t.Errorf("expected embedContent path, got %s", r.URL.Path)
		}

		var req geminiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.TaskType != "RETRIEVAL_QUERY" {
			t.Errorf("expected RETRIEVAL_QUERY task type, got %s", req.TaskType)
		}

		var resp geminiEmbedResponse
		resp.Embedding.Values = []float32{0.5, 0.6, 0.7}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc, err := NewGeminiEmbedding("key-test", "text-embedding-004", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.EmbedQuery(context.Background(), "what is the policy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 values, got %d", len(result))
	}
}

func TestGeminiEmbedding_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	svc, err := NewGeminiEmbedding("bad-key", "text-embedding-004", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Embed(context.Background(), []string{"test"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("expected API message in error, got %v", err)
	}
}
