package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, name, filename, path, pages, size_bytes, status, collection,
	   chunk_count, fail_stage, error, created_at, updated_at, indexed_at`

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, name, filename, path, pages, size_bytes, status, collection,
			chunk_count, fail_stage, error, created_at, updated_at, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			filename = EXCLUDED.filename,
			path = EXCLUDED.path,
			pages = EXCLUDED.pages,
			size_bytes = EXCLUDED.size_bytes,
			status = EXCLUDED.status,
			collection = EXCLUDED.collection,
			chunk_count = EXCLUDED.chunk_count,
			fail_stage = EXCLUDED.fail_stage,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			indexed_at = EXCLUDED.indexed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Name,
		doc.Filename,
		doc.Path,
		doc.Pages,
		doc.SizeBytes,
		doc.Status,
		doc.Collection,
		doc.ChunkCount,
		doc.FailStage,
		doc.Error,
		doc.CreatedAt,
		doc.UpdatedAt,
		NullTime(doc.IndexedAt),
	)
	return err
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves the most recently uploaded document with the given name.
// Names can collide across uploads; the newest one wins.
func (s *DocumentStore) GetByName(ctx context.Context, name string) (*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE name = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanDocument(s.db.QueryRowContext(ctx, query, name))
}

// List retrieves documents ordered by upload time, newest first
func (s *DocumentStore) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// ListIndexedBefore retrieves indexed documents whose indexing completed before the cutoff
func (s *DocumentStore) ListIndexedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1 AND indexed_at IS NOT NULL AND indexed_at < $2
		ORDER BY indexed_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, domain.StatusIndexed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanDocuments(rows)
}

// Delete deletes a document
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM documents`
	var count int
	err := s.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (s *DocumentStore) scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var indexedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Filename,
		&doc.Path,
		&doc.Pages,
		&doc.SizeBytes,
		&doc.Status,
		&doc.Collection,
		&doc.ChunkCount,
		&doc.FailStage,
		&doc.Error,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&indexedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.IndexedAt = TimePtr(indexedAt)
	return &doc, nil
}

func (s *DocumentStore) scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var indexedAt sql.NullTime

		err := rows.Scan(
			&doc.ID,
			&doc.Name,
			&doc.Filename,
			&doc.Path,
			&doc.Pages,
			&doc.SizeBytes,
			&doc.Status,
			&doc.Collection,
			&doc.ChunkCount,
			&doc.FailStage,
			&doc.Error,
			&doc.CreatedAt,
			&doc.UpdatedAt,
			&indexedAt,
		)
		if err != nil {
			return nil, err
		}

		doc.IndexedAt = TimePtr(indexedAt)
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}
