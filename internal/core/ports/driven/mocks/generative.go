package mocks

import (
	"context"
	"strings"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MockGenerativeService is a mock implementation of GenerativeService for testing.
// It echoes a canned answer, or "not found" when the system instruction
// carries no context, loosely imitating a context-constrained model.
type MockGenerativeService struct {
	answer          string
	notFoundMessage string
	rewritten       string
	failGenerate    bool
	failRewrite     bool

	// Captured inputs for assertions
	LastSystemInstruction string
	LastHistory           []domain.Turn
}

// NewMockGenerativeService creates a new MockGenerativeService
func NewMockGenerativeService() *MockGenerativeService {
	return &MockGenerativeService{
		answer:          "mock answer",
		notFoundMessage: "I could not find the answer in the provided document.",
	}
}

func (m *MockGenerativeService) Generate(ctx context.Context, systemInstruction string, history []domain.Turn) (string, error) {
	if m.failGenerate {
		m.failGenerate = false
		return "", domain.ErrGenerationService
	}

	m.LastSystemInstruction = systemInstruction
	m.LastHistory = append([]domain.Turn(nil), history...)

	if strings.Contains(systemInstruction, "Context:") && !strings.Contains(systemInstruction, "Context: \n") {
		return m.answer, nil
	}
	return m.notFoundMessage, nil
}

func (m *MockGenerativeService) RewriteQuery(ctx context.Context, history []domain.Turn, question string) (string, error) {
	if m.failRewrite {
		m.failRewrite = false
		return "", domain.ErrGenerationService
	}
	if m.rewritten != "" {
		return m.rewritten, nil
	}
	return question, nil
}

func (m *MockGenerativeService) Model() string {
	return "mock-generative-model"
}

func (m *MockGenerativeService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerativeService) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockGenerativeService) SetAnswer(answer string) {
	m.answer = answer
}

func (m *MockGenerativeService) SetRewritten(rewritten string) {
	m.rewritten = rewritten
}

func (m *MockGenerativeService) SetFailGenerate(fail bool) {
	m.failGenerate = fail
}

func (m *MockGenerativeService) SetFailRewrite(fail bool) {
	m.failRewrite = fail
}
