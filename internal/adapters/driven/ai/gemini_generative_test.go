package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func geminiTextResponse(text string) geminiGenerateResponse {
	var resp geminiGenerateResponse
	resp.Candidates = []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	}{{FinishReason: "STOP"}}
	resp.Candidates[0].Content.Parts = []geminiPart{{Text: text}}
	return resp
}

func TestNewGeminiGenerative_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiGenerative("", "gemini-1.5-flash", "")
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestGeminiGenerative_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("expected generateContent path, got %s", r.URL.Path)
		}

		var req geminiGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil || !strings.Contains(req.SystemInstruction.Parts[0].Text, "pdf Expert") {
			t.Error("expected system instruction to be forwarded")
		}
		// Assistant turns go over the wire as the "model" role
		if len(req.Contents) != 3 || req.Contents[1].Role != "model" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiTextResponse("Twenty days per year."))
	}))
	defer server.Close()

	svc, err := NewGeminiGenerative("key-test", "gemini-1.5-flash", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answer, err := svc.Generate(context.Background(), "You are a pdf Expert.", []domain.Turn{
		{Role: domain.RoleUser, Content: "What is the vacation policy?"},
		{Role: domain.RoleAssistant, Content: "It grants twenty days."},
		{Role: domain.RoleUser, Content: "Per year?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "Twenty days per year." {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestGeminiGenerative_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	svc, err := NewGeminiGenerative("key-test", "gemini-1.5-flash", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Generate(context.Background(), "", []domain.Turn{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.Is(err, domain.ErrGenerationService) {
		t.Errorf("expected ErrGenerationService, got %v", err)
	}
}

func TestGeminiGenerative_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	svc, err := NewGeminiGenerative("key-test", "gemini-1.5-flash", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Generate(context.Background(), "", []domain.Turn{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.Is(err, domain.ErrGenerationService) {
		t.Errorf("expected ErrGenerationService, got %v", err)
	}
}

func TestGeminiGenerative_RewriteQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.SystemInstruction == nil || !strings.Contains(req.SystemInstruction.Parts[0].Text, "standalone question") {
			t.Error("expected rewrite instruction")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiTextResponse("What is the vacation policy for part-time staff?"))
	}))
	defer server.Close()

	svc, err := NewGeminiGenerative("key-test", "gemini-1.5-flash", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rewritten, err := svc.RewriteQuery(context.Background(), []domain.Turn{
		{Role: domain.RoleUser, Content: "What is the vacation policy?"},
		{Role: domain.RoleAssistant, Content: "Twenty days."},
	}, "And for part-time staff?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rewritten, "part-time staff") {
		t.Errorf("unexpected rewrite: %q", rewritten)
	}
}
