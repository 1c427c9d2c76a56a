package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the ordered turn history of one chat session,
// scoped to a single document. Never shared across sessions.
type Conversation struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Turns        []Turn    `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewConversation creates an empty conversation for a document.
func NewConversation(id, documentID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           id,
		DocumentID:   documentID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Append adds turns to the history and bumps the activity timestamp.
func (c *Conversation) Append(turns ...Turn) {
	c.Turns = append(c.Turns, turns...)
	c.LastActiveAt = time.Now()
}

// LastTurn returns the most recent turn, or nil for an empty history.
func (c *Conversation) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}
