package driven

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// GenerativeService produces conversational answers via an LLM provider
type GenerativeService interface {
	// Generate produces a reply to the conversation under the given
	// system instruction. The history ends with the newest user turn.
	Generate(ctx context.Context, systemInstruction string, history []domain.Turn) (string, error)

	// RewriteQuery rephrases a follow-up question into a standalone
	// question using the chat history. Returns the rewritten question.
	RewriteQuery(ctx context.Context, history []domain.Turn, question string) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the generative service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generative service
	Close() error
}
