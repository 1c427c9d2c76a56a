package driven

import (
	"context"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// ConversationStore persists per-session chat histories (Redis preferred,
// PostgreSQL fallback). Sessions expire after an inactivity TTL; an
// expired session simply starts over on the next message.
type ConversationStore interface {
	// Save stores the full conversation and resets its inactivity TTL
	Save(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error

	// Get retrieves a conversation by session ID.
	// Returns domain.ErrSessionNotFound if absent or expired.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Delete removes a conversation
	Delete(ctx context.Context, id string) error

	// DeleteIdleSince removes conversations whose last activity is older
	// than the cutoff. Backends with native TTL may make this a no-op.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error)
}
