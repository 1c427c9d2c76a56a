package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	ingestionService driving.IngestionService
	chatService      driving.ChatService
	documentService  driving.DocumentService

	// Infrastructure
	taskQueue   driven.TaskQueue
	db          Pinger // PostgreSQL health check (optional)
	redisClient Pinger // Redis health check (optional)

	maxUploadBytes int64
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 32 << 20, // 32 MiB
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ingestionService driving.IngestionService,
	chatService driving.ChatService,
	documentService driving.DocumentService,
	taskQueue driven.TaskQueue,
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		ingestionService: ingestionService,
		chatService:      chatService,
		documentService:  documentService,
		taskQueue:        taskQueue,
		db:               db,
		redisClient:      redisClient,
		maxUploadBytes:   maxUploadBytes,
	}

	logging := NewLoggingMiddleware()
	recovery := NewRecoveryMiddleware()
	cors := NewCORSMiddleware(cfg.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(cors.Handler(logging.Handler(s.router))),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Upload and chat
	s.router.HandleFunc("POST /api/v1/upload", s.handleUpload)
	s.router.HandleFunc("POST /api/v1/chat", s.handleChat)

	// Document endpoints
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("GET /api/v1/documents/{id}/status", s.handleDocumentStatus)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route multiplexer for tests
func (s *Server) Handler() http.Handler {
	return s.router
}
