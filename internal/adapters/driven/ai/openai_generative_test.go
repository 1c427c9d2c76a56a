package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func newChatCompletionServer(t *testing.T, handler func(w http.ResponseWriter, req chatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
}

func chatReply(content string) chatCompletionResponse {
	var resp chatCompletionResponse
	resp.Choices = append(resp.Choices, struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}{Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"})
	return resp
}

func TestNewOpenAIGenerative(t *testing.T) {
	_, err := NewOpenAIGenerative("", "gpt-4o-mini", "")
	require.Error(t, err)

	svc, err := NewOpenAIGenerative("test-key", "", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", svc.Model())
}

func TestOpenAIGenerative_Generate(t *testing.T) {
	var captured chatCompletionRequest
	server := newChatCompletionServer(t, func(w http.ResponseWriter, req chatCompletionRequest) {
		captured = req
		_ = json.NewEncoder(w).Encode(chatReply("  The answer is 42.  "))
	})
	defer server.Close()

	svc, err := NewOpenAIGenerative("test-key", "gpt-4o-mini", server.URL)
	require.NoError(t, err)

	answer, err := svc.Generate(context.Background(), "You are a helpful assistant.", []domain.Turn{
		{Role: domain.RoleUser, Content: "What is the answer?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", answer)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a helpful assistant.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestOpenAIGenerative_GenerateNoChoices(t *testing.T) {
	server := newChatCompletionServer(t, func(w http.ResponseWriter, req chatCompletionRequest) {
		_ = json.NewEncoder(w).Encode(chatCompletionResponse{})
	})
	defer server.Close()

	svc, err := NewOpenAIGenerative("test-key", "gpt-4o-mini", server.URL)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "", []domain.Turn{{Role: domain.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}

func TestOpenAIGenerative_GenerateAPIError(t *testing.T) {
	server := newChatCompletionServer(t, func(w http.ResponseWriter, req chatCompletionRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})
	defer server.Close()

	svc, err := NewOpenAIGenerative("test-key", "gpt-4o-mini", server.URL)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "", []domain.Turn{{Role: domain.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestOpenAIGenerative_RewriteQuery(t *testing.T) {
	var captured chatCompletionRequest
	server := newChatCompletionServer(t, func(w http.ResponseWriter, req chatCompletionRequest) {
		captured = req
		_ = json.NewEncoder(w).Encode(chatReply("What year was the treaty signed?"))
	})
	defer server.Close()

	svc, err := NewOpenAIGenerative("test-key", "gpt-4o-mini", server.URL)
	require.NoError(t, err)

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "Tell me about the treaty."},
		{Role: domain.RoleAssistant, Content: "The treaty was signed in Paris."},
	}
	rewritten, err := svc.RewriteQuery(context.Background(), history, "what year?")
	require.NoError(t, err)
	assert.Equal(t, "What year was the treaty signed?", rewritten)

	// system instruction + history + latest question
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "what year?", captured.Messages[3].Content)
}
