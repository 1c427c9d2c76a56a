package domain

import (
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"strings"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// IngestionStatus tracks a document through the ingestion pipeline.
type IngestionStatus string

const (
	StatusUploaded  IngestionStatus = "uploaded"
	StatusExtracted IngestionStatus = "extracted"
	StatusChunked   IngestionStatus = "chunked"
	StatusEmbedded  IngestionStatus = "embedded"
	StatusIndexed   IngestionStatus = "indexed"
	StatusFailed    IngestionStatus = "failed"
)

// statusOrder defines the forward pipeline order.
var statusOrder = map[IngestionStatus]int{
	StatusUploaded:  0,
	StatusExtracted: 1,
	StatusChunked:   2,
	StatusEmbedded:  3,
	StatusIndexed:   4,
}

// CanTransition reports whether moving from s to next is a legal pipeline step.
// Failed is reachable from any non-terminal state; Indexed and Failed are terminal.
func (s IngestionStatus) CanTransition(next IngestionStatus) bool {
	if s == StatusIndexed || s == StatusFailed {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// Terminal reports whether the status is a terminal pipeline state.
func (s IngestionStatus) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// Queryable reports whether chat may retrieve from this document.
// A document becomes visible to queries only once fully indexed.
func (s IngestionStatus) Queryable() bool {
	return s == StatusIndexed
}

// Document represents one uploaded PDF and its ingestion state.
type Document struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`     // Normalized name derived from the filename
	Filename   string          `json:"filename"` // Original upload filename
	Path       string          `json:"path"`     // Transient file location, empty after indexing
	Pages      int             `json:"pages"`
	SizeBytes  int64           `json:"size_bytes"`
	Status     IngestionStatus `json:"status"`
	Collection string          `json:"collection"` // Vector collection owning this document's records
	ChunkCount int             `json:"chunk_count"`
	FailStage  string          `json:"fail_stage,omitempty"` // Pipeline stage that failed
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	IndexedAt  *time.Time      `json:"indexed_at,omitempty"`
}

// DocumentName normalizes an upload filename into a document name.
// The extension is stripped, the rest lower-cased, and whitespace
// replaced with underscores. Distinct uploads can collide on name;
// the document ID stays unique.
func DocumentName(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.Join(strings.Fields(base), "_")
}

// Chunk is a contiguous slice of extracted document text.
type Chunk struct {
	ID         string    `json:"id"` // Content fingerprint, stable across re-ingestion
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	Position   int       `json:"position"` // Ordinal index within the document
	StartChar  int       `json:"start_char"`
	EndChar    int       `json:"end_char"`
	CreatedAt  time.Time `json:"created_at"`
}

// VectorRecord is one embedded chunk as stored in the vector index.
// Immutable once written.
type VectorRecord struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryMatch is a retrieved vector record with its similarity score.
type QueryMatch struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Page is one page of extracted document text.
type Page struct {
	Number int    `json:"number"` // 1-based page number
	Text   string `json:"text"`
}
