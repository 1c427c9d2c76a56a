package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// pointNamespace derives deterministic Qdrant point UUIDs from record
// IDs. Qdrant only accepts UUIDs or integers as point IDs.
var pointNamespace = uuid.MustParse("8f3c1a2e-5b7d-4c9f-9e61-2a4d8b0c5e73")

// Config holds Qdrant connection settings
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Index implements VectorIndex against Qdrant's REST API. A collection
// maps 1:1 to a Qdrant collection.
type Index struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new Qdrant-backed VectorIndex
func New(config Config) (*Index, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("Qdrant URL is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Index{
		baseURL: config.URL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// metricToDistance maps domain metrics to Qdrant distance names
var metricToDistance = map[domain.Metric]string{
	domain.MetricCosine:     "Cosine",
	domain.MetricEuclidean:  "Euclid",
	domain.MetricDotProduct: "Dot",
}

var distanceToMetric = map[string]domain.Metric{
	"Cosine": domain.MetricCosine,
	"Euclid": domain.MetricEuclidean,
	"Dot":    domain.MetricDotProduct,
}

// collectionInfo is the relevant slice of Qdrant's collection response
type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
	Status string `json:"status"`
}

// CreateCollection creates a Qdrant collection, honoring the caller's
// existing-collection policy
func (i *Index) CreateCollection(ctx context.Context, spec domain.Collection, policy domain.CreatePolicy) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	existing, err := i.DescribeCollection(ctx, spec.Name)
	if err != nil && !isNotFound(err) {
		return err
	}

	if existing != nil {
		switch policy {
		case domain.CreatePolicyReuse:
			if existing.Dimension != spec.Dimension {
				return fmt.Errorf("%w: existing collection %s has dimension %d, want %d",
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

	body := map[string]any{
		"vectors": map[string]any{
			"size":     spec.Dimension,
			"distance": metricToDistance[spec.Metric],
		},
	}
	status, respBody, err := i.do(ctx, "PUT", "/collections/"+spec.Name, body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, respBody)
	}
	return nil
}

// DeleteCollection removes the collection and all its points
func (i *Index) DeleteCollection(ctx context.Context, name string) error {
	status, respBody, err := i.do(ctx, "DELETE", "/collections/"+name, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if status != http.StatusOK {
		return apiError(status, respBody)
	}
	return nil
}

// DescribeCollection returns the collection's configuration
func (i *Index) DescribeCollection(ctx context.Context, name string) (*domain.Collection, error) {
	status, respBody, err := i.do(ctx, "GET", "/collections/"+name, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	if status != http.StatusOK {
		return nil, apiError(status, respBody)
	}

	var info collectionInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("%w: failed to parse collection info: %v", domain.ErrVectorDB, err)
	}

	return &domain.Collection{
		Name:      name,
		Dimension: info.Result.Config.Params.Vectors.Size,
		Metric:    distanceToMetric[info.Result.Config.Params.Vectors.Distance],
	}, nil
}

// Upsert writes records as Qdrant points. The record ID and chunk text
// travel in the payload; the point ID is a UUID derived from the
// record ID so rewrites stay idempotent.
func (i *Index) Upsert(ctx context.Context, collection string, records []*domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	spec, err := i.DescribeCollection(ctx, collection)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec.Vector) != spec.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, collection %s expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), collection, spec.Dimension)
		}
	}

	points := make([]map[string]any, len(records))
	for idx, rec := range records {
		payload := map[string]any{
			"record_id": rec.ID,
			"text":      rec.Text,
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}
		points[idx] = map[string]any{
			"id":      uuid.NewSHA1(pointNamespace, []byte(rec.ID)).String(),
			"vector":  rec.Vector,
			"payload": payload,
		}
	}

	status, respBody, err := i.do(ctx, "PUT", "/collections/"+collection+"/points?wait=true", map[string]any{
		"points": points,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, respBody)
	}
	return nil
}

// searchResponse is Qdrant's point search response
type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
	Status string `json:"status"`
}

// Query returns the topK nearest records with their chunk text
func (i *Index) Query(ctx context.Context, collection string, vector []float32, topK int) ([]*domain.QueryMatch, error) {
	if topK <= 0 || topK > driven.MaxTopK {
		return nil, fmt.Errorf("%w: topK must be in (0, %d]", domain.ErrInvalidInput, driven.MaxTopK)
	}

	status, respBody, err := i.do(ctx, "POST", "/collections/"+collection+"/points/search", map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if status != http.StatusOK {
		return nil, apiError(status, respBody)
	}

	var sResp searchResponse
	if err := json.Unmarshal(respBody, &sResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse search response: %v", domain.ErrVectorDB, err)
	}

	matches := make([]*domain.QueryMatch, 0, len(sResp.Result))
	for _, hit := range sResp.Result {
		match := &domain.QueryMatch{
			Score:    hit.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range hit.Payload {
			s, ok := v.(string)
			if !ok {
				continue
			}
			switch k {
			case "record_id":
				match.ID = s
			case "text":
				match.Text = s
			default:
				match.Metadata[k] = s
			}
		}
		if match.ID == "" {
			match.ID = fmt.Sprintf("%v", hit.ID)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// HealthCheck verifies Qdrant is reachable
func (i *Index) HealthCheck(ctx context.Context) error {
	status, respBody, err := i.do(ctx, "GET", "/collections", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, respBody)
	}
	return nil
}

// do executes one JSON API request and returns status and body
func (i *Index) do(ctx context.Context, method, path string, reqBody any) (int, []byte, error) {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, i.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if i.apiKey != "" {
		req.Header.Set("api-key", i.apiKey)
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
	var qErr struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(body, &qErr) == nil && qErr.Status.Error != "" {
		return fmt.Errorf("%w: %s (status %d)", domain.ErrVectorDB, qErr.Status.Error, status)
	}
	return fmt.Errorf("%w: Qdrant API returned status %d", domain.ErrVectorDB, status)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrCollectionNotFound)
}
