package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ConversationStore = (*ConversationStore)(nil)

const (
	// Key prefixes for Redis
	conversationPrefix = "doctalk:conversation:"

	// conversationIdleIndex scores sessions by last activity so idle
	// sweeps can walk a range instead of scanning the keyspace
	conversationIdleIndex = "doctalk:conversation:by-activity"
)

// ConversationStore implements driven.ConversationStore using Redis.
// Conversations expire via Redis TTL; the activity index lets the
// retention sweeper prune sessions on backends where SCAN is costly.
type ConversationStore struct {
	client *redis.Client
}

// NewConversationStore creates a new Redis-backed ConversationStore
func NewConversationStore(client *redis.Client) *ConversationStore {
	return &ConversationStore{client: client}
}

// Save stores the full conversation and resets its inactivity TTL
func (s *ConversationStore) Save(ctx context.Context, conv *domain.Conversation, ttl time.Duration) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	pipe := s.client.Pipeline()
	if ttl > 0 {
		pipe.Set(ctx, conversationPrefix+conv.ID, data, ttl)
	} else {
		pipe.Set(ctx, conversationPrefix+conv.ID, data, 0)
	}
	pipe.ZAdd(ctx, conversationIdleIndex, redis.Z{
		Score:  float64(conv.LastActiveAt.UnixNano()),
		Member: conv.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by session ID
func (s *ConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	data, err := s.client.Get(ctx, conversationPrefix+id).Bytes()
	if err == redis.Nil {
		// TTL expiry leaves a stale index entry behind
		s.client.ZRem(ctx, conversationIdleIndex, id)
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// Delete removes a conversation
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, conversationPrefix+id)
	pipe.ZRem(ctx, conversationIdleIndex, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// DeleteIdleSince removes conversations whose last activity is older
// than the cutoff
func (s *ConversationStore) DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error) {
	max := strconv.FormatInt(cutoff.UnixNano(), 10)
	ids, err := s.client.ZRangeByScore(ctx, conversationIdleIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list idle conversations: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, conversationPrefix+id)
	}
	pipe.ZRemRangeByScore(ctx, conversationIdleIndex, "-inf", max)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete idle conversations: %w", err)
	}
	return len(ids), nil
}
