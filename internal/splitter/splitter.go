package splitter

import (
	"fmt"
	"strings"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Splitter = (*RecursiveSplitter)(nil)

// Config configures the splitter behavior.
type Config struct {
	// ChunkSize is the maximum characters per chunk
	ChunkSize int

	// Overlap is the character overlap between chunks; must be < ChunkSize
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// RecursiveSplitter splits text into overlapping chunks, preferring
// paragraph breaks, then sentence ends, then word boundaries, before
// falling back to a hard character cut.
type RecursiveSplitter struct {
	config Config
}

// New creates a splitter, validating the size/overlap relationship.
func New(config Config) (*RecursiveSplitter, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", domain.ErrInvalidInput)
	}
	if config.Overlap < 0 || config.Overlap >= config.ChunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size)", domain.ErrInvalidInput)
	}
	return &RecursiveSplitter{config: config}, nil
}

// ChunkSize returns the maximum characters per chunk.
func (s *RecursiveSplitter) ChunkSize() int {
	return s.config.ChunkSize
}

// Overlap returns the characters shared with the previous chunk.
func (s *RecursiveSplitter) Overlap() int {
	return s.config.Overlap
}

// Split splits content into ordered chunks. Empty input yields no chunks.
func (s *RecursiveSplitter) Split(content string) []domain.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if len(content) <= s.config.ChunkSize {
		return []domain.Chunk{{
			Content:   content,
			Position:  0,
			StartChar: 0,
			EndChar:   len(content),
		}}
	}

	var chunks []domain.Chunk
	start := 0
	position := 0

	for start < len(content) {
		end := start + s.config.ChunkSize
		if end > len(content) {
			end = len(content)
		}

		// Try to find a good break point
		if end < len(content) {
			if breakPoint := s.findBreakPoint(content, start, end); breakPoint > start {
				end = breakPoint
			}
		}

		chunks = append(chunks, domain.Chunk{
			Content:   content[start:end],
			Position:  position,
			StartChar: start,
			EndChar:   end,
		})
		position++

		if end >= len(content) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - s.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks
}

// findBreakPoint finds a good break point for chunking.
func (s *RecursiveSplitter) findBreakPoint(content string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	searchContent := content[searchStart:maxEnd]

	// Try to break at paragraph boundary (double newline)
	if s.config.PreserveParagraphs {
		if idx := strings.LastIndex(searchContent, "\n\n"); idx != -1 {
			return searchStart + idx + 2 // After the double newline
		}
	}

	// Try to break at sentence boundary
	if s.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		bestIdx := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(searchContent, ender); idx != -1 {
				endPos := idx + len(ender)
				if endPos > bestIdx {
					bestIdx = endPos
				}
			}
		}

		if bestIdx > 0 {
			return searchStart + bestIdx
		}
	}

	// Try to break at word boundary
	if idx := strings.LastIndex(searchContent, " "); idx != -1 {
		return searchStart + idx + 1
	}

	// No good break point found, use maxEnd
	return maxEnd
}
