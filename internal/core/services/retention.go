package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// RetentionConfig holds dependencies for the retention sweeper.
type RetentionConfig struct {
	DocumentStore     driven.DocumentStore
	ConversationStore driven.ConversationStore
	VectorIndex       driven.VectorIndex
	Logger            *slog.Logger

	// TTL is how long an indexed document is retained. Zero disables
	// document sweeping entirely; retention is opt-in.
	TTL time.Duration

	// SessionTTL bounds idle conversations for backends without native
	// key expiry. Zero disables conversation sweeping.
	SessionTTL time.Duration

	// Interval between sweeps (default 1h)
	Interval time.Duration
}

// RetentionSweeper periodically removes expired documents together with
// their own vector collections, and prunes idle conversations. Each
// document owns one collection, so a sweep can never delete another
// document's records.
type RetentionSweeper struct {
	documentStore     driven.DocumentStore
	conversationStore driven.ConversationStore
	vectorIndex       driven.VectorIndex
	logger            *slog.Logger

	ttl        time.Duration
	sessionTTL time.Duration
	interval   time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRetentionSweeper creates a new RetentionSweeper.
func NewRetentionSweeper(cfg RetentionConfig) *RetentionSweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &RetentionSweeper{
		documentStore:     cfg.DocumentStore,
		conversationStore: cfg.ConversationStore,
		vectorIndex:       cfg.VectorIndex,
		logger:            logger,
		ttl:               cfg.TTL,
		sessionTTL:        cfg.SessionTTL,
		interval:          cfg.Interval,
		stopCh:            make(chan struct{}),
		doneCh:            make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (r *RetentionSweeper) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (r *RetentionSweeper) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *RetentionSweeper) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("retention sweeper started",
		"document_ttl", r.ttl.String(),
		"session_ttl", r.sessionTTL.String(),
		"interval", r.interval.String(),
	)

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-r.stopCh:
			r.logger.Info("retention sweeper stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one retention pass.
func (r *RetentionSweeper) Sweep(ctx context.Context) {
	if r.ttl > 0 {
		r.sweepDocuments(ctx)
	}
	if r.sessionTTL > 0 {
		r.sweepConversations(ctx)
	}
}

func (r *RetentionSweeper) sweepDocuments(ctx context.Context) {
	cutoff := time.Now().Add(-r.ttl)
	docs, err := r.documentStore.ListIndexedBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("retention sweep failed to list documents", "error", err)
		return
	}

	for _, doc := range docs {
		if doc.Collection != "" {
			if err := r.vectorIndex.DeleteCollection(ctx, doc.Collection); err != nil &&
				!errors.Is(err, domain.ErrCollectionNotFound) {
				r.logger.Error("retention sweep failed to delete collection",
					"document_id", doc.ID, "collection", doc.Collection, "error", err)
				continue
			}
		}
		if err := r.documentStore.Delete(ctx, doc.ID); err != nil {
			r.logger.Error("retention sweep failed to delete document",
				"document_id", doc.ID, "error", err)
			continue
		}
		r.logger.Info("expired document removed",
			"document_id", doc.ID,
			"name", doc.Name,
			"indexed_at", doc.IndexedAt,
		)
	}
}

func (r *RetentionSweeper) sweepConversations(ctx context.Context) {
	cutoff := time.Now().Add(-r.sessionTTL)
	n, err := r.conversationStore.DeleteIdleSince(ctx, cutoff)
	if err != nil {
		r.logger.Error("retention sweep failed to prune conversations", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("idle conversations pruned", "count", n)
	}
}
