package mocks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// MockVectorIndex is an in-memory implementation of VectorIndex for testing.
// It ranks by exact cosine similarity regardless of the declared metric.
type MockVectorIndex struct {
	mu          sync.RWMutex
	collections map[string]*mockCollection
	failNext    bool
}

type mockCollection struct {
	spec    domain.Collection
	records map[string]*domain.VectorRecord
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		collections: make(map[string]*mockCollection),
	}
}

func (m *MockVectorIndex) CreateCollection(ctx context.Context, spec domain.Collection, policy domain.CreatePolicy) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if !policy.Valid() {
		return fmt.Errorf("%w: unknown create policy %q", domain.ErrInvalidInput, policy)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[spec.Name]; exists {
		switch policy {
		case domain.CreatePolicyReuse:
			return nil
		case domain.CreatePolicyFailIfExists:
			return fmt.Errorf("%w: %s", domain.ErrCollectionExists, spec.Name)
		case domain.CreatePolicyRecreate:
			delete(m.collections, spec.Name)
		}
	}

	m.collections[spec.Name] = &mockCollection{
		spec:    spec,
		records: make(map[string]*domain.VectorRecord),
	}
	return nil
}

func (m *MockVectorIndex) DeleteCollection(ctx context.Context, name string) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.collections[name]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	delete(m.collections, name)
	return nil
}

func (m *MockVectorIndex) DescribeCollection(ctx context.Context, name string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, exists := m.collections[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	spec := coll.spec
	return &spec, nil
}

func (m *MockVectorIndex) Upsert(ctx context.Context, collection string, records []*domain.VectorRecord) error {
	if err := m.takeFailure(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll, exists := m.collections[collection]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}

	// Validate all records before writing any
	for _, rec := range records {
		if len(rec.Vector) != coll.spec.Dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, collection %s expects %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), collection, coll.spec.Dimension)
		}
	}
	for _, rec := range records {
		coll.records[rec.ID] = rec
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, collection string, vector []float32, topK int) ([]*domain.QueryMatch, error) {
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	if topK <= 0 || topK > driven.MaxTopK {
		return nil, fmt.Errorf("%w: topK must be in (0, %d]", domain.ErrInvalidInput, driven.MaxTopK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	coll, exists := m.collections[collection]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	if len(vector) != coll.spec.Dimension {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection %s expects %d",
			domain.ErrDimensionMismatch, len(vector), collection, coll.spec.Dimension)
	}

	matches := make([]*domain.QueryMatch, 0, len(coll.records))
	for _, rec := range coll.records {
		matches = append(matches, &domain.QueryMatch{
			ID:       rec.ID,
			Score:    cosine(vector, rec.Vector),
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockVectorIndex) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}

func (m *MockVectorIndex) RecordCount(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, exists := m.collections[collection]
	if !exists {
		return 0
	}
	return len(coll.records)
}

func (m *MockVectorIndex) HasCollection(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.collections[name]
	return exists
}

func (m *MockVectorIndex) takeFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return domain.ErrVectorDB
	}
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
