package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// fakeQdrant is a minimal in-memory Qdrant REST server
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]int // name -> dimension
	points      map[string][]map[string]any
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{
		collections: make(map[string]int),
		points:      make(map[string][]map[string]any),
	}
	server := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeQdrant) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == "GET" && r.URL.Path == "/collections":
		_, _ = w.Write([]byte(`{"result":{"collections":[]},"status":"ok"}`))

	case len(parts) == 2 && parts[0] == "collections":
		name := parts[1]
		switch r.Method {
		case "PUT":
			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.collections[name] = body.Vectors.Size
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		case "GET":
			dim, exists := f.collections[name]
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var info collectionInfo
			info.Status = "ok"
			info.Result.Config.Params.Vectors.Size = dim
			info.Result.Config.Params.Vectors.Distance = "Cosine"
			_ = json.NewEncoder(w).Encode(info)
		case "DELETE":
			if _, exists := f.collections[name]; !exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.collections, name)
			delete(f.points, name)
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		}

	case len(parts) == 3 && parts[2] == "points" && r.Method == "PUT":
		name := parts[1]
		if _, exists := f.collections[name]; !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points[name] = append(f.points[name], body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))

	case len(parts) == 4 && parts[3] == "search" && r.Method == "POST":
		name := parts[1]
		if _, exists := f.collections[name]; !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body struct {
			Limit int `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		result := make([]map[string]any, 0)
		for _, p := range f.points[name] {
			if len(result) >= body.Limit {
				break
			}
			result = append(result, map[string]any{
				"id":      p["id"],
				"score":   0.87,
				"payload": p["payload"],
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	_, server := newFakeQdrant(t)
	idx, err := New(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return idx
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestIndex_CreateDescribeDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	spec := domain.Collection{Name: "doc-1", Dimension: 4, Metric: domain.MetricCosine}
	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyFailIfExists); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	desc, err := idx.DescribeCollection(ctx, "doc-1")
	if err != nil {
		t.Fatalf("DescribeCollection() error = %v", err)
	}
	if desc.Dimension != 4 || desc.Metric != domain.MetricCosine {
		t.Errorf("unexpected description: %+v", desc)
	}

	if err := idx.DeleteCollection(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}
	if _, err := idx.DescribeCollection(ctx, "doc-1"); !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Errorf("error = %v, want ErrCollectionNotFound", err)
	}
}

func TestIndex_CreatePolicies(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	spec := domain.Collection{Name: "doc-1", Dimension: 4, Metric: domain.MetricCosine}
	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyFailIfExists); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	err := idx.CreateCollection(ctx, spec, domain.CreatePolicyFailIfExists)
	if !errors.Is(err, domain.ErrCollectionExists) {
		t.Errorf("fail-if-exists error = %v, want ErrCollectionExists", err)
	}

	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyReuse); err != nil {
		t.Errorf("reuse error = %v", err)
	}

	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyRecreate); err != nil {
		t.Errorf("recreate error = %v", err)
	}
}

func TestIndex_UpsertAndQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	spec := domain.Collection{Name: "doc-1", Dimension: 3, Metric: domain.MetricCosine}
	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyFailIfExists); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	records := []*domain.VectorRecord{
		{ID: "rec-a", Vector: []float32{1, 0, 0}, Text: "alpha", Metadata: map[string]string{"source": "doc"}},
		{ID: "rec-b", Vector: []float32{0, 1, 0}, Text: "beta"},
	}
	if err := idx.Upsert(ctx, "doc-1", records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	matches, err := idx.Query(ctx, "doc-1", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}

	// Record IDs and text round-trip through the payload
	byID := map[string]*domain.QueryMatch{}
	for _, m := range matches {
		byID[m.ID] = m
	}
	if m := byID["rec-a"]; m == nil || m.Text != "alpha" || m.Metadata["source"] != "doc" {
		t.Errorf("unexpected match for rec-a: %+v", m)
	}
}

func TestIndex_UpsertDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	spec := domain.Collection{Name: "doc-1", Dimension: 3, Metric: domain.MetricCosine}
	if err := idx.CreateCollection(ctx, spec, domain.CreatePolicyFailIfExists); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	err := idx.Upsert(ctx, "doc-1", []*domain.VectorRecord{
		{ID: "bad", Vector: []float32{1, 2, 3, 4}, Text: "too long"},
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestIndex_QueryMissingCollection(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Query(context.Background(), "ghost", []float32{1, 0, 0}, 5)
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Errorf("error = %v, want ErrCollectionNotFound", err)
	}
}

func TestIndex_HealthCheck(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
