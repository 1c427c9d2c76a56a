package driven

import (
	"context"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// Extractor extracts page-level text from an uploaded PDF.
// Implementations call a local parser or a remote extraction service.
type Extractor interface {
	// Extract parses the raw PDF bytes into ordered pages of text.
	// Returns domain.ErrExtraction for corrupt or unreadable input.
	Extract(ctx context.Context, data []byte) ([]domain.Page, error)
}
