package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure GeminiEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*GeminiEmbedding)(nil)

// GeminiEmbedding implements EmbeddingService using the Google
// Generative Language embedding API
type GeminiEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	client     *http.Client
}

// Model dimensions for Gemini embedding models
var geminiModelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

// NewGeminiEmbedding creates a new Gemini embedding service
func NewGeminiEmbedding(apiKey, model, baseURL string) (driven.EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	if model == "" {
		model = "text-embedding-004"
	}

	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	dimensions, ok := geminiModelDimensions[model]
	if !ok {
		// Default to 768 for unknown models
		dimensions = 768
	}

	return &GeminiEmbedding{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// geminiContent is a single content payload
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiEmbedRequest is one entry of a batchEmbedContents request
type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Embed generates embeddings for multiple texts
func (e *GeminiEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := geminiBatchEmbedRequest{
		Requests: make([]geminiEmbedRequest, len(texts)),
	}
	for i, text := range texts {
		reqBody.Requests[i] = geminiEmbedRequest{
			Model:    "models/" + e.model,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: "RETRIEVAL_DOCUMENT",
		}
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", e.baseURL, e.model)
	respBody, err := e.doRequest(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var embResp geminiBatchEmbedResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrEmbeddingService, err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: %s (status: %s)", domain.ErrEmbeddingService, embResp.Error.Message, embResp.Error.Status)
	}
	if len(embResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingService, len(embResp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range embResp.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query.
// Uses the RETRIEVAL_QUERY task type, which Gemini optimizes
// differently from document embeddings.
func (e *GeminiEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	reqBody := geminiEmbedRequest{
		Model:    "models/" + e.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: query}}},
		TaskType: "RETRIEVAL_QUERY",
	}

	url := fmt.Sprintf("%s/models/%s:embedContent", e.baseURL, e.model)
	respBody, err := e.doRequest(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}

	var embResp geminiEmbedResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrEmbeddingService, err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: %s (status: %s)", domain.ErrEmbeddingService, embResp.Error.Message, embResp.Error.Status)
	}
	if len(embResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned for query", domain.ErrEmbeddingService)
	}
	return embResp.Embedding.Values, nil
}

// Dimensions returns the embedding dimension size
func (e *GeminiEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *GeminiEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *GeminiEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *GeminiEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// doRequest posts a JSON body to the Gemini API and returns the raw
// response bytes
func (e *GeminiEmbedding) doRequest(ctx context.Context, url string, reqBody any) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrEmbeddingService, err)
	}

	if resp.StatusCode != http.StatusOK {
		// The error detail, if present, is surfaced by the caller's parse
		var errResp struct {
			Error *geminiError `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%w: %s (status: %s)", domain.ErrEmbeddingService, errResp.Error.Message, errResp.Error.Status)
		}
		return nil, fmt.Errorf("%w: Gemini API returned status %d", domain.ErrEmbeddingService, resp.StatusCode)
	}

	return respBody, nil
}
