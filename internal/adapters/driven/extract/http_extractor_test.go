package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func TestNewHTTPExtractor_RequiresURL(t *testing.T) {
	_, err := NewHTTPExtractor("")
	if err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestHTTPExtractor_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("expected /extract, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/pdf" {
			t.Error("expected Content-Type application/pdf")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pages":[{"number":1,"text":"first page"},{"number":2,"text":"second page"}]}`))
	}))
	defer server.Close()

	extractor, err := NewHTTPExtractor(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pages, err := extractor.Extract(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Number != 1 || pages[0].Text != "first page" {
		t.Errorf("unexpected first page: %+v", pages[0])
	}
}

func TestHTTPExtractor_Extract_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"encrypted document"}`))
	}))
	defer server.Close()

	extractor, err := NewHTTPExtractor(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = extractor.Extract(context.Background(), []byte("%PDF-1.4"))
	if !errors.Is(err, domain.ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestHTTPExtractor_Extract_EmptyInput(t *testing.T) {
	extractor, err := NewHTTPExtractor("http://localhost:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = extractor.Extract(context.Background(), nil)
	if !errors.Is(err, domain.ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestPDFExtractor_Extract_RejectsGarbage(t *testing.T) {
	extractor := NewPDFExtractor()

	_, err := extractor.Extract(context.Background(), []byte("not a pdf at all"))
	if !errors.Is(err, domain.ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}

	_, err = extractor.Extract(context.Background(), nil)
	if !errors.Is(err, domain.ErrExtraction) {
		t.Errorf("expected ErrExtraction for empty input, got %v", err)
	}
}
