package driven

import "github.com/doctalk-labs/doctalk-core/internal/core/domain"

// Splitter splits extracted document text into overlapping chunks.
// Implementations must guarantee every chunk length <= ChunkSize and
// the shared overlap between consecutive chunks <= Overlap.
type Splitter interface {
	// Split splits the text into ordered chunks. Chunk ID and
	// DocumentID are left empty; the caller assigns them.
	Split(text string) []domain.Chunk

	// ChunkSize returns the maximum characters per chunk.
	ChunkSize() int

	// Overlap returns the characters shared with the previous chunk.
	Overlap() int
}
