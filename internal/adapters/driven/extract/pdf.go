package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure PDFExtractor implements Extractor
var _ driven.Extractor = (*PDFExtractor)(nil)

// PDFExtractor extracts page text from PDF bytes in-process
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDFExtractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract parses the PDF and returns one Page per document page.
// Pages that yield no text are still returned so page numbering
// matches the document.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrExtraction)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrExtraction)
	}

	pages := make([]domain.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		text, err := pageText(page)
		if err != nil {
			// A single unreadable page should not sink the document
			pages = append(pages, domain.Page{Number: i})
			continue
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}

	return pages, nil
}

// pageText flattens a page's positioned text rows into plain text
func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, row := range rows {
		var words []string
		for _, word := range row.Content {
			if word.S != "" {
				words = append(words, word.S)
			}
		}
		if len(words) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Join(words, " "))
	}
	return sb.String(), nil
}
