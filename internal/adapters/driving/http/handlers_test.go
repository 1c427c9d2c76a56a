package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
)

// Per-test service mocks

type mockIngestionService struct {
	uploadFn func(req driving.UploadRequest) (*driving.UploadResponse, error)
	statusFn func(documentID string) (*driving.IngestionStatusResponse, error)
}

func (m *mockIngestionService) Upload(ctx context.Context, req driving.UploadRequest) (*driving.UploadResponse, error) {
	if m.uploadFn != nil {
		return m.uploadFn(req)
	}
	return &driving.UploadResponse{DocumentID: "doc-1", Status: domain.StatusUploaded}, nil
}

func (m *mockIngestionService) Run(ctx context.Context, documentID string) error {
	return nil
}

func (m *mockIngestionService) Status(ctx context.Context, documentID string) (*driving.IngestionStatusResponse, error) {
	if m.statusFn != nil {
		return m.statusFn(documentID)
	}
	return &driving.IngestionStatusResponse{DocumentID: documentID, Status: domain.StatusIndexed}, nil
}

type mockChatService struct {
	answerFn func(req driving.ChatRequest) (*driving.ChatResponse, error)
}

func (m *mockChatService) Answer(ctx context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	if m.answerFn != nil {
		return m.answerFn(req)
	}
	return &driving.ChatResponse{
		Role:         domain.RoleAssistant,
		Message:      "the answer",
		SessionToken: "token-1",
		SessionID:    "session-1",
	}, nil
}

type mockDocumentService struct {
	getFn    func(id string) (*domain.Document, error)
	listFn   func(limit, offset int) ([]*domain.Document, error)
	deleteFn func(id string) error
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &domain.Document{ID: id, Status: domain.StatusIndexed}, nil
}

func (m *mockDocumentService) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(limit, offset)
	}
	return nil, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type testServer struct {
	server    *Server
	ingestion *mockIngestionService
	chat      *mockChatService
	documents *mockDocumentService
	queue     *mockPinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		ingestion: &mockIngestionService{},
		chat:      &mockChatService{},
		documents: &mockDocumentService{},
		queue:     &mockPinger{},
	}

	ts.server = NewServer(
		DefaultConfig(),
		ts.ingestion,
		ts.chat,
		ts.documents,
		nil,
		ts.queue, // stands in for the database pinger
		nil,
	)

	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func multipartPDF(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &buf, mw.FormDataContentType()
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestHandleReady(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleReady_BackendDown(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.err = errors.New("connection refused")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["version"] != "dev" {
		t.Errorf("expected version dev, got %q", body["version"])
	}
}

// Upload endpoint

func TestHandleUpload_Success(t *testing.T) {
	ts := newTestServer(t)

	var got driving.UploadRequest
	ts.ingestion.uploadFn = func(req driving.UploadRequest) (*driving.UploadResponse, error) {
		got = req
		return &driving.UploadResponse{
			DocumentID: "doc-42",
			Name:       "report",
			Status:     domain.StatusUploaded,
			Message:    "ingestion started",
		}, nil
	}

	buf, contentType := multipartPDF(t, "file", "report.pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(t, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	if got.Filename != "report.pdf" {
		t.Errorf("expected filename report.pdf, got %q", got.Filename)
	}
	if !bytes.Equal(got.Data, []byte("%PDF-1.4 fake")) {
		t.Error("uploaded bytes did not reach the service")
	}

	var resp driving.UploadResponse
	decodeBody(t, rec, &resp)
	if resp.DocumentID != "doc-42" {
		t.Errorf("expected document doc-42, got %q", resp.DocumentID)
	}
}

func TestHandleUpload_MissingFile(t *testing.T) {
	ts := newTestServer(t)

	// Multipart form without the expected "file" field
	buf, contentType := multipartPDF(t, "attachment", "report.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != "No file uploaded" {
		t.Errorf("expected message %q, got %q", "No file uploaded", body["message"])
	}
	if _, ok := body["error"]; ok {
		t.Error("upload rejection must use the message key, not the error envelope")
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")

	rec := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleUpload_RejectedByService(t *testing.T) {
	ts := newTestServer(t)
	ts.ingestion.uploadFn = func(req driving.UploadRequest) (*driving.UploadResponse, error) {
		return nil, domain.ErrInvalidInput
	}

	buf, contentType := multipartPDF(t, "file", "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	rec := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != "No file uploaded" {
		t.Errorf("expected message %q, got %q", "No file uploaded", body["message"])
	}
}

// Chat endpoint

func TestHandleChat_Success(t *testing.T) {
	ts := newTestServer(t)

	var got driving.ChatRequest
	ts.chat.answerFn = func(req driving.ChatRequest) (*driving.ChatResponse, error) {
		got = req
		return &driving.ChatResponse{
			Role:         domain.RoleAssistant,
			Message:      "Revenue grew 12% in 2024.",
			SessionToken: "token-abc",
			SessionID:    "session-abc",
		}, nil
	}

	body := `{"question":"What was revenue growth?","session_token":"prev-token"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := ts.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if got.Question != "What was revenue growth?" {
		t.Errorf("question did not reach the service: %q", got.Question)
	}
	if got.SessionToken != "prev-token" {
		t.Errorf("session token did not reach the service: %q", got.SessionToken)
	}

	var resp driving.ChatResponse
	decodeBody(t, rec, &resp)
	if resp.Role != domain.RoleAssistant {
		t.Errorf("expected assistant role, got %q", resp.Role)
	}
	if resp.SessionToken != "token-abc" {
		t.Errorf("expected fresh session token, got %q", resp.SessionToken)
	}
}

func TestHandleChat_InvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{not json"))
	rec := ts.do(t, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleChat_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty question", domain.ErrInvalidInput, http.StatusBadRequest},
		{"invalid token", domain.ErrTokenInvalid, http.StatusUnauthorized},
		{"document missing", domain.ErrNotFound, http.StatusNotFound},
		{"document not ready", domain.ErrDocumentNotReady, http.StatusConflict},
		{"no embedder", domain.ErrEmbeddingService, http.StatusServiceUnavailable},
		{"no generator", domain.ErrGenerationService, http.StatusServiceUnavailable},
		{"vector store down", domain.ErrVectorDB, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.chat.answerFn = func(req driving.ChatRequest) (*driving.ChatResponse, error) {
				return nil, tc.err
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"question":"hi"}`))
			rec := ts.do(t, req)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

// Document endpoints

func TestHandleListDocuments(t *testing.T) {
	ts := newTestServer(t)
	ts.documents.listFn = func(limit, offset int) ([]*domain.Document, error) {
		return []*domain.Document{
			{ID: "doc-2", Status: domain.StatusIndexed},
			{ID: "doc-1", Status: domain.StatusFailed},
		}, nil
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp DocumentListResponse
	decodeBody(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 documents, got %d", resp.Count)
	}
	if resp.Documents[0].ID != "doc-2" {
		t.Errorf("expected doc-2 first, got %s", resp.Documents[0].ID)
	}
}

func TestHandleListDocuments_Empty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Empty list must serialize as [], not null
	if !strings.Contains(rec.Body.String(), `"documents":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandleListDocuments_PassesPagination(t *testing.T) {
	ts := newTestServer(t)

	var gotLimit, gotOffset int
	ts.documents.listFn = func(limit, offset int) ([]*domain.Document, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}

	ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=5&offset=10", nil))
	if gotLimit != 5 || gotOffset != 10 {
		t.Errorf("expected limit=5 offset=10, got limit=%d offset=%d", gotLimit, gotOffset)
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.documents.getFn = func(id string) (*domain.Document, error) {
		return nil, domain.ErrNotFound
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleDocumentStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.ingestion.statusFn = func(documentID string) (*driving.IngestionStatusResponse, error) {
		return &driving.IngestionStatusResponse{
			DocumentID: documentID,
			Status:     domain.StatusFailed,
			FailStage:  "embed",
			Error:      "embedding dimension mismatch",
		}, nil
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-9/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp driving.IngestionStatusResponse
	decodeBody(t, rec, &resp)
	if resp.DocumentID != "doc-9" {
		t.Errorf("expected doc-9, got %q", resp.DocumentID)
	}
	if resp.FailStage != "embed" {
		t.Errorf("expected fail stage embed, got %q", resp.FailStage)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	ts := newTestServer(t)

	var deleted string
	ts.documents.deleteFn = func(id string) error {
		deleted = id
		return nil
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if deleted != "doc-7" {
		t.Errorf("expected doc-7 to be deleted, got %q", deleted)
	}
}

func TestHandleDeleteDocument_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.documents.deleteFn = func(id string) error {
		return domain.ErrNotFound
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
