package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
	"github.com/doctalk-labs/doctalk-core/internal/runtime"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// Pipeline stage names, reported on failure so the caller sees which
// step broke.
const (
	stageLoad    = "load"
	stageExtract = "extract"
	stageChunk   = "chunk"
	stageEmbed   = "embed"
	stageIndex   = "index"
)

// IngestionConfig holds dependencies for the ingestion service.
type IngestionConfig struct {
	DocumentStore driven.DocumentStore
	Extractor     driven.Extractor
	Splitter      driven.Splitter
	VectorIndex   driven.VectorIndex
	TaskQueue     driven.TaskQueue
	Services      *runtime.Services
	Logger        *slog.Logger

	// UploadDir is where transient upload bytes live until indexing completes
	UploadDir string

	// Dimension is the expected embedding dimension (default 768)
	Dimension int

	// EmbedBatchSize is how many chunks go into one embedding call (default 16)
	EmbedBatchSize int

	// EmbedConcurrency bounds simultaneous embedding calls (default 3,
	// keeping within provider rate limits)
	EmbedConcurrency int

	// CreatePolicy applies when the document's collection name already
	// exists (default recreate, matching re-upload of the same file)
	CreatePolicy domain.CreatePolicy
}

// ingestionService drives the document pipeline:
// Uploaded -> Extracted -> Chunked -> Embedded -> Indexed, or Failed.
//
// The partial-failure policy is all-or-nothing: any embedding or upsert
// error aborts the run, removes the partially written collection and
// marks the document failed with the broken stage. The uploaded bytes
// are kept on disk for retry; they are deleted only after Indexed.
type ingestionService struct {
	documentStore driven.DocumentStore
	extractor     driven.Extractor
	splitter      driven.Splitter
	vectorIndex   driven.VectorIndex
	taskQueue     driven.TaskQueue
	services      *runtime.Services
	logger        *slog.Logger

	uploadDir        string
	dimension        int
	embedBatchSize   int
	embedConcurrency int
	createPolicy     domain.CreatePolicy
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(cfg IngestionConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 768
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 16
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 3
	}
	if !cfg.CreatePolicy.Valid() {
		cfg.CreatePolicy = domain.CreatePolicyRecreate
	}

	return &ingestionService{
		documentStore:    cfg.DocumentStore,
		extractor:        cfg.Extractor,
		splitter:         cfg.Splitter,
		vectorIndex:      cfg.VectorIndex,
		taskQueue:        cfg.TaskQueue,
		services:         cfg.Services,
		logger:           logger,
		uploadDir:        cfg.UploadDir,
		dimension:        cfg.Dimension,
		embedBatchSize:   cfg.EmbedBatchSize,
		embedConcurrency: cfg.EmbedConcurrency,
		createPolicy:     cfg.CreatePolicy,
	}
}

// Upload registers the document, persists its bytes and enqueues an
// ingestion task for the worker.
func (s *ingestionService) Upload(ctx context.Context, req driving.UploadRequest) (*driving.UploadResponse, error) {
	if req.Filename == "" || len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrInvalidInput)
	}
	if !strings.EqualFold(filepath.Ext(req.Filename), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF uploads are supported", domain.ErrInvalidInput)
	}

	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Name:      domain.DocumentName(req.Filename),
		Filename:  filepath.Base(req.Filename),
		SizeBytes: int64(len(req.Data)),
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.Collection = collectionName(doc.ID)
	doc.Path = filepath.Join(s.uploadDir, doc.ID+".pdf")

	if err := os.WriteFile(doc.Path, req.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist upload: %w", err)
	}

	if err := s.documentStore.Save(ctx, doc); err != nil {
		_ = os.Remove(doc.Path)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	task := domain.NewTask(domain.TaskTypeIngestDocument, doc.ID, nil)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to enqueue ingestion: %w", err)
	}

	s.logger.Info("upload accepted",
		"document_id", doc.ID,
		"name", doc.Name,
		"size_bytes", doc.SizeBytes,
	)

	return &driving.UploadResponse{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Status:     doc.Status,
		Message:    "File uploaded successfully, indexing in progress",
	}, nil
}

// Run executes the full pipeline for one uploaded document.
func (s *ingestionService) Run(ctx context.Context, documentID string) error {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	switch doc.Status {
	case domain.StatusUploaded:
	case domain.StatusFailed:
		// Retry after a failed run; the transient file was kept
		doc.Status = domain.StatusUploaded
		doc.FailStage = ""
		doc.Error = ""
	default:
		s.logger.Info("skipping ingestion, document not in a runnable state",
			"document_id", doc.ID, "status", doc.Status)
		return nil
	}

	start := time.Now()
	s.logger.Info("starting ingestion", "document_id", doc.ID, "name", doc.Name)

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return s.fail(ctx, doc, stageLoad, fmt.Errorf("%w: %v", domain.ErrExtraction, err))
	}

	// Uploaded -> Extracted
	pages, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return s.fail(ctx, doc, stageExtract, err)
	}
	doc.Pages = len(pages)
	if err := s.transition(ctx, doc, domain.StatusExtracted); err != nil {
		return err
	}

	// Extracted -> Chunked
	chunks := s.splitter.Split(joinPages(pages))
	if len(chunks) == 0 {
		return s.fail(ctx, doc, stageChunk, domain.ErrEmptyDocument)
	}
	for i := range chunks {
		chunks[i].ID = chunkFingerprint(doc.ID, chunks[i].Position, chunks[i].Content)
		chunks[i].DocumentID = doc.ID
		chunks[i].CreatedAt = time.Now()
	}
	doc.ChunkCount = len(chunks)
	if err := s.transition(ctx, doc, domain.StatusChunked); err != nil {
		return err
	}

	// Chunked -> Embedded
	records, err := s.embedChunks(ctx, doc, chunks)
	if err != nil {
		return s.fail(ctx, doc, stageEmbed, err)
	}
	if err := s.transition(ctx, doc, domain.StatusEmbedded); err != nil {
		return err
	}

	// Embedded -> Indexed
	if err := s.index(ctx, doc, records); err != nil {
		return s.fail(ctx, doc, stageIndex, err)
	}
	now := time.Now()
	doc.IndexedAt = &now
	if err := s.transition(ctx, doc, domain.StatusIndexed); err != nil {
		return err
	}

	// Transient bytes are only discarded once the document is queryable
	if err := os.Remove(doc.Path); err != nil {
		s.logger.Warn("failed to remove transient upload", "document_id", doc.ID, "error", err)
	}
	doc.Path = ""
	if err := s.documentStore.Save(ctx, doc); err != nil {
		s.logger.Warn("failed to clear transient path", "document_id", doc.ID, "error", err)
	}

	s.logger.Info("ingestion completed",
		"document_id", doc.ID,
		"pages", doc.Pages,
		"chunks", doc.ChunkCount,
		"duration_seconds", time.Since(start).Seconds(),
	)
	return nil
}

// Status reports the document's pipeline state.
func (s *ingestionService) Status(ctx context.Context, documentID string) (*driving.IngestionStatusResponse, error) {
	doc, err := s.documentStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &driving.IngestionStatusResponse{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Pages:      doc.Pages,
		ChunkCount: doc.ChunkCount,
		FailStage:  doc.FailStage,
		Error:      doc.Error,
	}, nil
}

// embedChunks batch-embeds all chunks with bounded concurrency.
// All-or-nothing: the first error cancels outstanding batches and the
// whole run fails. Every vector is validated against the configured
// dimension before anything is written downstream.
func (s *ingestionService) embedChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]*domain.VectorRecord, error) {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingService)
	}

	type batch struct {
		start  int
		chunks []domain.Chunk
	}
	var batches []batch
	for i := 0; i < len(chunks); i += s.embedBatchSize {
		end := i + s.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, batch{start: i, chunks: chunks[i:end]})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	vectors := make([][]float32, len(chunks))
	sem := make(chan struct{}, s.embedConcurrency)

	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			texts := make([]string, len(b.chunks))
			for i, c := range b.chunks {
				texts[i] = c.Content
			}

			embeddings, err := embedder.Embed(ctx, texts)
			if err == nil && len(embeddings) != len(texts) {
				err = fmt.Errorf("%w: got %d embeddings for %d texts",
					domain.ErrEmbeddingService, len(embeddings), len(texts))
			}
			if err == nil {
				for _, v := range embeddings {
					if len(v) != s.dimension {
						err = fmt.Errorf("%w: embedding has %d dimensions, expected %d",
							domain.ErrDimensionMismatch, len(v), s.dimension)
						break
					}
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			copy(vectors[b.start:], embeddings)
		}(b)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	records := make([]*domain.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = &domain.VectorRecord{
			ID:     chunk.ID,
			Vector: vectors[i],
			Text:   chunk.Content,
			Metadata: map[string]string{
				"source":      doc.Name,
				"document_id": doc.ID,
				"chunk_index": fmt.Sprintf("%d", chunk.Position),
				"timestamp":   chunk.CreatedAt.UTC().Format(time.RFC3339),
			},
		}
	}
	return records, nil
}

// index creates the document's collection and upserts all records.
// On upsert failure the collection is rolled back so the document never
// becomes partially visible.
func (s *ingestionService) index(ctx context.Context, doc *domain.Document, records []*domain.VectorRecord) error {
	spec := domain.Collection{
		Name:      doc.Collection,
		Dimension: s.dimension,
		Metric:    domain.MetricCosine,
	}
	if err := s.vectorIndex.CreateCollection(ctx, spec, s.createPolicy); err != nil {
		return err
	}

	if err := s.vectorIndex.Upsert(ctx, doc.Collection, records); err != nil {
		if delErr := s.vectorIndex.DeleteCollection(ctx, doc.Collection); delErr != nil {
			s.logger.Warn("rollback of partial collection failed",
				"collection", doc.Collection, "error", delErr)
		}
		return err
	}
	return nil
}

// fail marks the document failed with the broken stage. The transient
// file is kept for retry and diagnosis.
func (s *ingestionService) fail(ctx context.Context, doc *domain.Document, stage string, cause error) error {
	s.logger.Error("ingestion failed",
		"document_id", doc.ID,
		"stage", stage,
		"error", cause,
	)

	doc.Status = domain.StatusFailed
	doc.FailStage = stage
	doc.Error = cause.Error()
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		s.logger.Warn("failed to persist failure state", "document_id", doc.ID, "error", err)
	}
	return fmt.Errorf("ingestion stage %s: %w", stage, cause)
}

// transition advances the document through the pipeline, enforcing
// strict stage order.
func (s *ingestionService) transition(ctx context.Context, doc *domain.Document, next domain.IngestionStatus) error {
	if !doc.Status.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s for document %s", doc.Status, next, doc.ID)
	}
	doc.Status = next
	doc.UpdatedAt = time.Now()
	if err := s.documentStore.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist %s state: %w", next, err)
	}
	return nil
}

// collectionName derives the per-document collection name. Collections
// are scoped to one document so retention or deletion can never touch
// another document's records.
func collectionName(documentID string) string {
	return "doc-" + strings.ReplaceAll(strings.ToLower(documentID), "_", "-")
}

// chunkFingerprint derives a stable record ID from the chunk's
// document, position and content. Re-ingesting an unchanged document
// yields identical IDs, which makes upserts idempotent under the reuse
// policy, while repeated passages within one document still get
// distinct records.
func chunkFingerprint(documentID string, position int, content string) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s:%d:%s", documentID, position, content)))
	return hex.EncodeToString(sum[:16])
}

// joinPages concatenates page texts in order, separated by blank lines.
func joinPages(pages []domain.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}
