package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService exposes document lifecycle operations. Deleting a
// document removes exactly its own vector collection; other documents'
// collections are never touched.
type documentService struct {
	documentStore driven.DocumentStore
	vectorIndex   driven.VectorIndex
	taskQueue     driven.TaskQueue
	logger        *slog.Logger
}

// NewDocumentService creates a new DocumentService. The task queue is
// optional; without it a failed collection delete fails the whole call
// instead of being handed to the worker.
func NewDocumentService(documentStore driven.DocumentStore, vectorIndex driven.VectorIndex, taskQueue driven.TaskQueue, logger *slog.Logger) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documentStore: documentStore,
		vectorIndex:   vectorIndex,
		taskQueue:     taskQueue,
		logger:        logger,
	}
}

// Get retrieves a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	return s.documentStore.Get(ctx, id)
}

// List retrieves documents, newest first.
func (s *documentService) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.documentStore.List(ctx, limit, offset)
}

// Delete removes a document, its vector collection and any transient
// upload file still on disk.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.documentStore.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.Collection != "" {
		if err := s.vectorIndex.DeleteCollection(ctx, doc.Collection); err != nil &&
			!errors.Is(err, domain.ErrCollectionNotFound) {
			if qErr := s.queueCollectionCleanup(ctx, doc); qErr != nil {
				return fmt.Errorf("failed to delete collection %s: %w", doc.Collection, err)
			}
			s.logger.Warn("collection delete failed, queued for worker retry",
				"document_id", doc.ID, "collection", doc.Collection, "error", err)
		}
	}

	if doc.Path != "" {
		if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove upload file", "document_id", doc.ID, "error", err)
		}
	}

	if err := s.documentStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Info("document deleted", "document_id", doc.ID, "name", doc.Name)
	return nil
}

// queueCollectionCleanup hands an orphaned collection to the worker.
// The registry row is gone either way; the worker retries the vector
// backend until the collection is removed.
func (s *documentService) queueCollectionCleanup(ctx context.Context, doc *domain.Document) error {
	if s.taskQueue == nil {
		return fmt.Errorf("no task queue configured")
	}
	task := domain.NewTask(domain.TaskTypeDeleteCollection, doc.ID, map[string]string{
		"collection": doc.Collection,
	})
	return s.taskQueue.Enqueue(ctx, task)
}
