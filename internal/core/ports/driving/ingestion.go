package driving

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// UploadRequest carries one uploaded PDF
type UploadRequest struct {
	Filename string
	Data     []byte
}

// UploadResponse reports the accepted upload
type UploadResponse struct {
	DocumentID string                 `json:"document_id"`
	Name       string                 `json:"name"`
	Status     domain.IngestionStatus `json:"status"`
	Message    string                 `json:"message"`
}

// IngestionStatusResponse reports pipeline progress for a document
type IngestionStatusResponse struct {
	DocumentID string                 `json:"document_id"`
	Status     domain.IngestionStatus `json:"status"`
	Pages      int                    `json:"pages"`
	ChunkCount int                    `json:"chunk_count"`
	FailStage  string                 `json:"fail_stage,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// IngestionService accepts uploads and drives the ingestion pipeline
type IngestionService interface {
	// Upload registers the document, persists its bytes and enqueues an
	// ingestion task. The returned status is pollable via Status.
	Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error)

	// Run executes the full pipeline for an uploaded document:
	// extract, chunk, embed, index. Called by the background worker.
	Run(ctx context.Context, documentID string) error

	// Status reports the document's pipeline state
	Status(ctx context.Context, documentID string) (*IngestionStatusResponse, error)
}
