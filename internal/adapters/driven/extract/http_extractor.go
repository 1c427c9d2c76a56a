package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure HTTPExtractor implements Extractor
var _ driven.Extractor = (*HTTPExtractor)(nil)

// HTTPExtractor extracts page text by posting PDF bytes to an external
// extraction service. Used when OCR or layout-aware extraction beyond
// the in-process parser is deployed alongside.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates a new HTTPExtractor
func NewHTTPExtractor(baseURL string) (*HTTPExtractor, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("extraction service URL is required")
	}
	return &HTTPExtractor{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// extractResponse is the extraction service response body
type extractResponse struct {
	Pages []struct {
		Number int    `json:"number"`
		Text   string `json:"text"`
	} `json:"pages"`
	Error string `json:"error,omitempty"`
}

// Extract posts the document and returns the extracted pages
func (e *HTTPExtractor) Extract(ctx context.Context, data []byte) ([]domain.Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrExtraction)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/extract", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrExtraction, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrExtraction, err)
	}

	var extResp extractResponse
	if err := json.Unmarshal(respBody, &extResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrExtraction, err)
	}
	if extResp.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtraction, extResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: extraction service returned status %d", domain.ErrExtraction, resp.StatusCode)
	}

	pages := make([]domain.Page, len(extResp.Pages))
	for i, p := range extResp.Pages {
		number := p.Number
		if number == 0 {
			number = i + 1
		}
		pages[i] = domain.Page{Number: number, Text: p.Text}
	}
	return pages, nil
}
