package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// upsertBatchSize caps vectors per upsert request, per Pinecone limits
const upsertBatchSize = 100

// Config holds Pinecone connection settings
type Config struct {
	APIKey string

	// ControlURL is the control-plane endpoint (default Pinecone cloud)
	ControlURL string

	// Cloud and Region place serverless indexes
	Cloud  string
	Region string

	// ReadyTimeout bounds the wait for a new index to become ready
	ReadyTimeout time.Duration
}

// Index implements VectorIndex against Pinecone's serverless API.
// Each collection maps to one Pinecone index.
type Index struct {
	config Config
	client *http.Client

	// hosts caches data-plane hosts per index
	mu    sync.RWMutex
	hosts map[string]string
}

// New creates a new Pinecone-backed VectorIndex
func New(config Config) (*Index, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Pinecone API key is required")
	}
	if config.ControlURL == "" {
		config.ControlURL = "https://api.pinecone.io"
	}
	if config.Cloud == "" {
		config.Cloud = "aws"
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Minute
	}

	return &Index{
		config: config,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		hosts: make(map[string]string),
	}, nil
}

// createIndexRequest is the control-plane index creation body
type createIndexRequest struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	Metric    string    `json:"metric"`
	Spec      indexSpec `json:"spec"`
}

type indexSpec struct {
	Serverless serverlessSpec `json:"serverless"`
}

type serverlessSpec struct {
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

// indexDescription is the control-plane index description
type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type pineconeError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (e *pineconeError) text() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

// CreateCollection creates a Pinecone index for the collection,
// honoring the caller's existing-collection policy
func (i *Index) CreateCollection(ctx context.Context, spec domain.Collection, policy domain.CreatePolicy) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	existing, err := i.describe(ctx, spec.Name)
	if err != nil && !isNotFound(err) {
		return err
	}

	if existing != nil {
		switch policy {
		case domain.CreatePolicyReuse:
			if existing.Dimension != spec.Dimension {
				return fmt.Errorf("%w: existing index %s has dimension %d, want %d",
					domain.ErrDimensionMismatch, spec.Name, existing.Dimension, spec.Dimension)
			}
			return nil
		case domain.CreatePolicyRecreate:
			if err := i.DeleteCollection(ctx, spec.Name); err != nil {
				return err
			}
		case domain.CreatePolicyFailIfExists:
			return fmt.Errorf("%w: %s", domain.ErrCollectionExists, spec.Name)
		default:
			return fmt.Errorf("%w: unknown create policy %q", domain.ErrInvalidInput, policy)
		}
	}

	reqBody := createIndexRequest{
		Name:      spec.Name,
		Dimension: spec.Dimension,
		Metric:    string(spec.Metric),
		Spec: indexSpec{
			Serverless: serverlessSpec{
				Cloud:  i.config.Cloud,
				Region: i.config.Region,
			},
		},
	}

	status, respBody, err := i.do(ctx, "POST", i.config.ControlURL+"/indexes", reqBody)
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return apiError(status, respBody)
	}

	return i.waitUntilReady(ctx, spec.Name)
}

// DeleteCollection deletes the index and drops its cached host
func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	status, respBody, err := i.do(ctx, "DELETE", i.config.ControlURL+"/indexes/"+name, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if status != http.StatusAccepted && status != http.StatusOK && status != http.StatusNoContent {
		return apiError(status, respBody)
	}

	i.mu.Lock()
	delete(i.hosts, name)
	i.mu.Unlock()
	return nil
}

// DescribeCollection returns the collection's configuration
func (i *Index) DescribeCollection(ctx context.Context, name string) (*domain.Collection, error) {
	desc, err := i.describe(ctx, name)
	if err != nil {
		return nil, err
	}
	return &domain.Collection{
		Name:      desc.Name,
		Dimension: desc.Dimension,
		Metric:    domain.Metric(desc.Metric),
	}, nil
}

// upsertRequest is the data-plane upsert body
type upsertRequest struct {
	Vectors []upsertVector `json:"vectors"`
}

type upsertVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Upsert writes records in batches. Vector lengths are validated
// against the index dimension before the first write so a bad batch
// never lands partially.
func (i *Index) Upsert(ctx context.Context, collection string, records []*domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	desc, err := i.describe(ctx, collection)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec.Vector) != desc.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index %s expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), collection, desc.Dimension)
		}
	}

	host, err := i.host(ctx, collection)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		reqBody := upsertRequest{Vectors: make([]upsertVector, 0, end-start)}
		for _, rec := range records[start:end] {
			metadata := make(map[string]string, len(rec.Metadata)+1)
			for k, v := range rec.Metadata {
				metadata[k] = v
			}
			metadata["text"] = rec.Text
			reqBody.Vectors = append(reqBody.Vectors, upsertVector{
				ID:       rec.ID,
				Values:   rec.Vector,
				Metadata: metadata,
			})
		}

		status, respBody, err := i.do(ctx, "POST", host+"/vectors/upsert", reqBody)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return apiError(status, respBody)
		}
	}
	return nil
}

// queryRequest is the data-plane query body
type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// Query returns the topK nearest records with their chunk text
func (i *Index) Query(ctx context.Context, collection string, vector []float32, topK int) ([]*domain.QueryMatch, error) {
	if topK <= 0 || topK > driven.MaxTopK {
		return nil, fmt.Errorf("%w: topK must be in (0, %d]", domain.ErrInvalidInput, driven.MaxTopK)
	}

	host, err := i.host(ctx, collection)
	if err != nil {
		return nil, err
	}

	status, respBody, err := i.do(ctx, "POST", host+"/query", queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, respBody)
	}

	var qResp queryResponse
	if err := json.Unmarshal(respBody, &qResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse query response: %v", domain.ErrVectorDB, err)
	}

	matches := make([]*domain.QueryMatch, 0, len(qResp.Matches))
	for _, m := range qResp.Matches {
		match := &domain.QueryMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		}
		if m.Metadata != nil {
			match.Text = m.Metadata["text"]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// HealthCheck verifies the control plane is reachable
func (i *Index) HealthCheck(ctx context.Context) error {
	status, respBody, err := i.do(ctx, "GET", i.config.ControlURL+"/indexes", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, respBody)
	}
	return nil
}

// describe fetches the index description from the control plane
func (i *Index) describe(ctx context.Context, name string) (*indexDescription, error) {
	status, respBody, err := i.do(ctx, "GET", i.config.ControlURL+"/indexes/"+name, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if status != http.StatusOK {
		return nil, apiError(status, respBody)
	}

	var desc indexDescription
	if err := json.Unmarshal(respBody, &desc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse index description: %v", domain.ErrVectorDB, err)
	}
	return &desc, nil
}

// host resolves and caches the index's data-plane host
func (i *Index) host(ctx context.Context, name string) (string, error) {
	i.mu.RLock()
	host, ok := i.hosts[name]
	i.mu.RUnlock()
	if ok {
		return host, nil
	}

	desc, err := i.describe(ctx, name)
	if err != nil {
		return "", err
	}
	if desc.Host == "" {
		return "", fmt.Errorf("%w: index %s has no data-plane host", domain.ErrVectorDB, name)
	}

	host = desc.Host
	if len(host) < 8 || host[:4] != "http" {
		host = "https://" + host
	}

	i.mu.Lock()
	i.hosts[name] = host
	i.mu.Unlock()
	return host, nil
}

// waitUntilReady polls until the index accepts writes
func (i *Index) waitUntilReady(ctx context.Context, name string) error {
	deadline := time.Now().Add(i.config.ReadyTimeout)
	for {
		desc, err := i.describe(ctx, name)
		if err == nil && desc.Status.Ready {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %s not ready after %s", domain.ErrVectorDB, name, i.config.ReadyTimeout)
		}

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// do executes one JSON API request and returns status and body
func (i *Index) do(ctx context.Context, method, url string, reqBody any) (int, []byte, error) {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", i.config.APIKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: request failed: %v", domain.ErrVectorDB, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrVectorDB, err)
	}
	return resp.StatusCode, respBody, nil
}

func apiError(status int, body []byte) error {
	var pErr pineconeError
	if json.Unmarshal(body, &pErr) == nil && pErr.text() != "" {
		return fmt.Errorf("%w: %s (status %d)", domain.ErrVectorDB, pErr.text(), status)
	}
	return fmt.Errorf("%w: Pinecone API returned status %d", domain.ErrVectorDB, status)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrCollectionNotFound)
}
