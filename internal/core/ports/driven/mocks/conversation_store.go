package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MockConversationStore is a mock implementation of ConversationStore for testing
type MockConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	failNextSave  bool
}

// NewMockConversationStore creates a new MockConversationStore
func NewMockConversationStore() *MockConversationStore {
	return &MockConversationStore{
		conversations: make(map[string]*domain.Conversation),
	}
}

func (m *MockConversationStore) Save(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextSave {
		m.failNextSave = false
		return domain.ErrSessionNotFound
	}
	copied := *conv
	copied.Turns = append([]domain.Turn(nil), conv.Turns...)
	m.conversations[conv.ID] = &copied
	return nil
}

func (m *MockConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *conv
	copied.Turns = append([]domain.Turn(nil), conv.Turns...)
	return &copied, nil
}

func (m *MockConversationStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, id)
	return nil
}

func (m *MockConversationStore) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, conv := range m.conversations {
		if conv.LastActiveAt.Before(cutoff) {
			delete(m.conversations, id)
			deleted++
		}
	}
	return deleted, nil
}

// Helper methods for testing

func (m *MockConversationStore) SetFailNextSave(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextSave = fail
}

func (m *MockConversationStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}
