package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driving"
	"github.com/doctalk-labs/doctalk-core/internal/runtime"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

const (
	// contextSeparator joins retrieved chunks into one context block
	contextSeparator = "\n\n---\n\n"

	// notFoundAnswer is what the model is instructed to say when the
	// retrieved context does not contain the answer
	notFoundAnswer = "I could not find the answer in the provided document."

	// apologyAnswer is returned when retrieval or generation breaks.
	// It is never appended to the history.
	apologyAnswer = "I apologize, but I'm having trouble processing your request right now."

	answerSystemInstruction = `You are a helpful AI assistant and a pdf Expert. You will be given a context from a pdf document and a question. Answer the question based ONLY on the provided context. If the answer is not in the context, say "` + notFoundAnswer + `" Do not use outside knowledge.`

	rewriteSystemInstruction = `Given the chat history and the latest user question, rephrase the latest question into a standalone question that can be understood without the history. Do NOT answer the question. If it is already standalone, return it unchanged.`
)

// ChatConfig holds dependencies for the chat service.
type ChatConfig struct {
	DocumentStore     driven.DocumentStore
	ConversationStore driven.ConversationStore
	VectorIndex       driven.VectorIndex
	TokenSigner       driven.SessionTokenSigner
	Services          *runtime.Services
	Logger            *slog.Logger

	// TopK is how many chunks are retrieved per question (default 10)
	TopK int

	// SessionTTL is the sliding inactivity window for a session
	// (default 30m); each answered turn refreshes it
	SessionTTL time.Duration

	// HistoryLimit caps the turns sent to the model (default 20). Older
	// turns stay in the store but are not replayed.
	HistoryLimit int
}

// chatService answers questions grounded in a single document's
// indexed chunks. Each session has its own history, identified by a
// signed token; turns within one session are serialized so concurrent
// messages cannot interleave their history writes.
type chatService struct {
	documentStore     driven.DocumentStore
	conversationStore driven.ConversationStore
	vectorIndex       driven.VectorIndex
	tokenSigner       driven.SessionTokenSigner
	services          *runtime.Services
	logger            *slog.Logger

	topK         int
	sessionTTL   time.Duration
	historyLimit int

	// sessionMu serializes turns per session
	mu        sync.Mutex
	sessionMu map[string]*sync.Mutex
}

// NewChatService creates a new ChatService.
func NewChatService(cfg ChatConfig) driving.ChatService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 || cfg.TopK > driven.MaxTopK {
		cfg.TopK = 10
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}

	return &chatService{
		documentStore:     cfg.DocumentStore,
		conversationStore: cfg.ConversationStore,
		vectorIndex:       cfg.VectorIndex,
		tokenSigner:       cfg.TokenSigner,
		services:          cfg.Services,
		logger:            logger,
		topK:              cfg.TopK,
		sessionTTL:        cfg.SessionTTL,
		historyLimit:      cfg.HistoryLimit,
	}
}

// Answer handles one chat turn.
func (s *chatService) Answer(ctx context.Context, req driving.ChatRequest) (*driving.ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	embedder := s.services.EmbeddingService()
	generator := s.services.GenerativeService()
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingService)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: no generative service configured", domain.ErrGenerationService)
	}

	conv, err := s.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := s.lockSession(conv.ID)
	defer unlock()

	doc, err := s.resolveDocument(ctx, conv.DocumentID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.Queryable() {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrDocumentNotReady, doc.ID, doc.Status)
	}
	conv.DocumentID = doc.ID

	answer, err := s.answerGrounded(ctx, generator, embedder, doc, conv, question)
	if err != nil {
		// The history stays untouched so a transient provider error
		// does not leave a half-written exchange behind.
		s.logger.Error("chat turn failed",
			"session_id", conv.ID,
			"document_id", doc.ID,
			"error", err,
		)
		token, signErr := s.issueToken(conv)
		if signErr != nil {
			return nil, signErr
		}
		return &driving.ChatResponse{
			Role:         domain.RoleAssistant,
			Message:      apologyAnswer,
			SessionToken: token,
			SessionID:    conv.ID,
		}, nil
	}

	now := time.Now()
	conv.Append(
		domain.Turn{Role: domain.RoleUser, Content: question, CreatedAt: now},
		domain.Turn{Role: domain.RoleAssistant, Content: answer, CreatedAt: now},
	)
	if err := s.conversationStore.Save(ctx, conv, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	token, err := s.issueToken(conv)
	if err != nil {
		return nil, err
	}

	return &driving.ChatResponse{
		Role:         domain.RoleAssistant,
		Message:      answer,
		SessionToken: token,
		SessionID:    conv.ID,
	}, nil
}

// answerGrounded runs the retrieval-augmented turn: rewrite, embed,
// query, generate.
func (s *chatService) answerGrounded(ctx context.Context, generator driven.GenerativeService, embedder driven.EmbeddingService, doc *domain.Document, conv *domain.Conversation, question string) (string, error) {
	searchQuery := s.rewriteQuery(ctx, generator, conv.Turns, question)

	queryVec, err := embedder.EmbedQuery(ctx, searchQuery)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.vectorIndex.Query(ctx, doc.Collection, queryVec, s.topK)
	if err != nil {
		return "", fmt.Errorf("failed to query collection %s: %w", doc.Collection, err)
	}

	contextBlock := buildContext(matches)
	instruction := answerSystemInstruction + "\n\nContext:\n" + contextBlock

	history := s.recentTurns(conv.Turns)
	history = append(history, domain.Turn{
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	})

	answer, err := generator.Generate(ctx, instruction, history)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return answer, nil
}

// rewriteQuery turns a follow-up question into a standalone search
// query. Falls back to the original question if rewriting fails or
// there is no history to resolve against.
func (s *chatService) rewriteQuery(ctx context.Context, generator driven.GenerativeService, history []domain.Turn, question string) string {
	if len(history) == 0 {
		return question
	}

	rewritten, err := generator.RewriteQuery(ctx, s.recentTurns(history), question)
	if err != nil {
		s.logger.Warn("query rewrite failed, using original question", "error", err)
		return question
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question
	}
	return rewritten
}

// resolveSession verifies the incoming token and loads its conversation,
// or starts a fresh session when there is no token or the prior session
// expired.
func (s *chatService) resolveSession(ctx context.Context, req driving.ChatRequest) (*domain.Conversation, error) {
	if req.SessionToken == "" {
		return domain.NewConversation(uuid.NewString(), req.DocumentID), nil
	}

	claims, err := s.tokenSigner.Verify(req.SessionToken)
	if err != nil {
		return nil, err
	}
	if req.DocumentID != "" && req.DocumentID != claims.DocumentID {
		// Switching documents starts a new session; histories are
		// scoped to one document.
		return domain.NewConversation(uuid.NewString(), req.DocumentID), nil
	}

	conv, err := s.conversationStore.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.NewConversation(uuid.NewString(), claims.DocumentID), nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return conv, nil
}

// resolveDocument returns the requested document, or the most recently
// indexed one when no ID was given.
func (s *chatService) resolveDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	if documentID != "" {
		return s.documentStore.Get(ctx, documentID)
	}

	docs, err := s.documentStore.List(ctx, 50, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if doc.Status.Queryable() {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: no indexed document available", domain.ErrNotFound)
}

// recentTurns returns the newest turns up to the history limit.
func (s *chatService) recentTurns(turns []domain.Turn) []domain.Turn {
	if len(turns) <= s.historyLimit {
		return append([]domain.Turn(nil), turns...)
	}
	return append([]domain.Turn(nil), turns[len(turns)-s.historyLimit:]...)
}

// issueToken signs fresh claims for the session. Re-issued on every
// turn so the token expiry slides with activity.
func (s *chatService) issueToken(conv *domain.Conversation) (string, error) {
	now := time.Now()
	token, err := s.tokenSigner.Sign(&domain.SessionClaims{
		SessionID:  conv.ID,
		DocumentID: conv.DocumentID,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(s.sessionTTL).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// lockSession acquires the per-session mutex, creating it on first use.
func (s *chatService) lockSession(sessionID string) func() {
	s.mu.Lock()
	if s.sessionMu == nil {
		s.sessionMu = make(map[string]*sync.Mutex)
	}
	m, ok := s.sessionMu[sessionID]
	if !ok {
		m = &sync.Mutex{}
		s.sessionMu[sessionID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// buildContext joins retrieved chunk texts into the prompt context.
func buildContext(matches []*domain.QueryMatch) string {
	if len(matches) == 0 {
		return "(no relevant content found)"
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, contextSeparator)
}
