package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore implements driven.ConversationStore using PostgreSQL.
// Postgres has no native key TTL, so expiry is tracked in an expires_at
// column and enforced on read.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a new ConversationStore
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Save stores the full conversation and resets its inactivity TTL
func (s *ConversationStore) Save(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error {
	turnsJSON, err := json.Marshal(conv.Turns)
	if err != nil {
		return err
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: time.Now().Add(ttl), Valid: true}
	}

	query := `
		INSERT INTO conversations (id, document_id, turns, created_at, last_active_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			turns = EXCLUDED.turns,
			last_active_at = EXCLUDED.last_active_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		conv.ID,
		conv.DocumentID,
		turnsJSON,
		conv.CreatedAt,
		conv.LastActiveAt,
		expiresAt,
	)
	return err
}

// Get retrieves a conversation by session ID.
// An expired row is treated as absent and removed.
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, document_id, turns, created_at, last_active_at, expires_at
		FROM conversations
		WHERE id = $1
	`

	var conv domain.Conversation
	var turnsJSON []byte
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.DocumentID,
		&turnsJSON,
		&conv.CreatedAt,
		&conv.LastActiveAt,
		&expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		_ = s.Delete(ctx, id)
		return nil, domain.ErrSessionNotFound
	}

	if len(turnsJSON) > 0 {
		if err := json.Unmarshal(turnsJSON, &conv.Turns); err != nil {
			return nil, err
		}
	}

	return &conv, nil
}

// Delete removes a conversation
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

// DeleteIdleSince removes conversations whose last activity is older than the cutoff
func (s *ConversationStore) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE last_active_at < $1 OR (expires_at IS NOT NULL AND expires_at < NOW())`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}
