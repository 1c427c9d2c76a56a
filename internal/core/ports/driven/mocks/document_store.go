package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	failNext  bool
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return domain.ErrNotFound
	}
	copied := *doc
	m.documents[doc.ID] = &copied
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) GetByName(ctx context.Context, name string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var newest *domain.Document
	for _, doc := range m.documents {
		if doc.Name != name {
			continue
		}
		if newest == nil || doc.CreatedAt.After(newest.CreatedAt) {
			newest = doc
		}
	}
	if newest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

func (m *MockDocumentStore) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]*domain.Document, 0, len(m.documents))
	for _, doc := range m.documents {
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })

	if offset >= len(docs) {
		return []*domain.Document{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

func (m *MockDocumentStore) ListIndexedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.Status == domain.StatusIndexed && doc.IndexedAt != nil && doc.IndexedAt.Before(cutoff) {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	return docs, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents), nil
}

// Helper methods for testing

func (m *MockDocumentStore) SetFailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}
