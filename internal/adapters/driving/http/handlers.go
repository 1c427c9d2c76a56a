package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"no file uploaded"`
}

// UploadErrorResponse is the upload endpoint's rejection body. Its
// "message" key is a compatibility contract with upload clients; the
// other endpoints use the "error" envelope.
type UploadErrorResponse struct {
	Message string `json:"message" example:"No file uploaded"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// DocumentListResponse wraps a page of documents
// @Description Page of documents
type DocumentListResponse struct {
	Documents []*domain.Document `json:"documents"`
	Count     int                `json:"count"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks store and queue connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backend is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "task queue unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Upload endpoint

// handleUpload godoc
// @Summary      Upload a PDF
// @Description  Accepts a multipart PDF upload and starts asynchronous ingestion. Poll the status endpoint to follow progress.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF file"
// @Success      202   {object}  driving.UploadResponse
// @Failure      400   {object}  UploadErrorResponse  "No file uploaded or not a PDF"
// @Failure      500   {object}  UploadErrorResponse  "Upload failed"
// @Router       /upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeUploadError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeUploadError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeUploadError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	resp, err := s.ingestionService.Upload(r.Context(), driving.UploadRequest{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeUploadError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		writeUploadError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// Chat endpoint

// handleChat godoc
// @Summary      Ask a question about a document
// @Description  Answers a question grounded in an indexed document. The first response carries a session token; echo it on follow-up turns to continue the conversation.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      driving.ChatRequest  true  "Question with optional session token and document ID"
// @Success      200      {object}  driving.ChatResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body or empty question"
// @Failure      401      {object}  ErrorResponse  "Invalid session token"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      409      {object}  ErrorResponse  "Document not ready for chat"
// @Failure      503      {object}  ErrorResponse  "AI provider not configured"
// @Router       /chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req driving.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chatService.Answer(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Document endpoints

// handleListDocuments godoc
// @Summary      List documents
// @Description  Lists uploaded documents, newest first
// @Tags         Documents
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  DocumentListResponse
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	docs, err := s.documentService.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, DocumentListResponse{
		Documents: docs,
		Count:     len(docs),
	})
}

// handleGetDocument godoc
// @Summary      Get a document
// @Description  Returns a single document by ID
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documentService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDocumentStatus godoc
// @Summary      Get ingestion status
// @Description  Reports pipeline progress for a document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  driving.IngestionStatusResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/status [get]
func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.ingestionService.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleDeleteDocument godoc
// @Summary      Delete a document
// @Description  Removes a document together with its vector collection
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documentService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Helpers

// writeServiceError maps domain sentinel errors to HTTP status codes.
// Unmatched errors become opaque 500s; internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid session token")
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "session not found")
	case errors.Is(err, domain.ErrDocumentNotReady):
		writeError(w, http.StatusConflict, "document is not ready for chat")
	case errors.Is(err, domain.ErrEmbeddingService), errors.Is(err, domain.ErrGenerationService):
		writeError(w, http.StatusServiceUnavailable, "AI provider unavailable")
	case errors.Is(err, domain.ErrVectorDB):
		writeError(w, http.StatusBadGateway, "vector store unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeUploadError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
