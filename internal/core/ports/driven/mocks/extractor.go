package mocks

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MockExtractor is a mock implementation of Extractor for testing
type MockExtractor struct {
	pages    []domain.Page
	failNext bool
}

// NewMockExtractor creates a MockExtractor returning the given page texts
func NewMockExtractor(pageTexts ...string) *MockExtractor {
	pages := make([]domain.Page, len(pageTexts))
	for i, text := range pageTexts {
		pages[i] = domain.Page{Number: i + 1, Text: text}
	}
	return &MockExtractor{pages: pages}
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrExtraction
	}
	return m.pages, nil
}

// Helper methods for testing

func (m *MockExtractor) SetFailNext(fail bool) {
	m.failNext = fail
}

func (m *MockExtractor) SetPages(pages []domain.Page) {
	m.pages = pages
}
