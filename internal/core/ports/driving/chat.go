package driving

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// ChatRequest is one user question within a session.
// SessionToken is empty on the first turn; the response returns a token
// the client must echo on follow-up turns. DocumentID may be empty, in
// which case the most recently indexed document is used.
type ChatRequest struct {
	SessionToken string `json:"session_token,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
	Question     string `json:"question"`
}

// ChatResponse is the assistant's reply
type ChatResponse struct {
	Role         domain.Role `json:"role"`
	Message      string      `json:"message"`
	SessionToken string      `json:"session_token"`
	SessionID    string      `json:"session_id"`
}

// ChatService answers questions grounded in an indexed document
type ChatService interface {
	// Answer retrieves relevant document chunks for the question and
	// produces a context-grounded assistant reply, appending both turns
	// to the session history. Turns within one session are serialized.
	Answer(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
