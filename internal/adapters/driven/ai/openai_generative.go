package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure OpenAIGenerative implements GenerativeService
var _ driven.GenerativeService = (*OpenAIGenerative)(nil)

// OpenAIGenerative implements GenerativeService using OpenAI's chat
// completions API
type OpenAIGenerative struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIGenerative creates a new OpenAI generative service
func NewOpenAIGenerative(apiKey, model, baseURL string) (driven.GenerativeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIGenerative{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// chatMessage is one message of a chat completion request
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the request body for the chat completions API
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatCompletionResponse is the response from the chat completions API
type chatCompletionResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Generate produces a reply to the conversation under the given system
// instruction
func (g *OpenAIGenerative) Generate(ctx context.Context, systemInstruction string, history []domain.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	for _, turn := range history {
		messages = append(messages, chatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	resp, err := g.doRequest(ctx, chatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGenerationService)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// RewriteQuery rephrases a follow-up question into a standalone
// question using the chat history
func (g *OpenAIGenerative) RewriteQuery(ctx context.Context, history []domain.Turn, question string) (string, error) {
	instruction := "Given the chat history and the latest user question, rephrase the latest question into a standalone question that can be understood without the history. Do NOT answer the question. If it is already standalone, return it unchanged."

	turns := append(append([]domain.Turn(nil), history...), domain.Turn{
		Role:    domain.RoleUser,
		Content: question,
	})
	return g.Generate(ctx, instruction, turns)
}

// Model returns the model name being used
func (g *OpenAIGenerative) Model() string {
	return g.model
}

// Ping verifies the generative service is available
func (g *OpenAIGenerative) Ping(ctx context.Context) error {
	_, err := g.Generate(ctx, "", []domain.Turn{{Role: domain.RoleUser, Content: "ping"}})
	return err
}

// Close releases resources held by the generative service
func (g *OpenAIGenerative) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func (g *OpenAIGenerative) doRequest(ctx context.Context, reqBody chatCompletionRequest) (*chatCompletionResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrGenerationService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrGenerationService, err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", domain.ErrGenerationService, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("%w: %s (type: %s, code: %s)",
			domain.ErrGenerationService, chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: OpenAI API returned status %d", domain.ErrGenerationService, resp.StatusCode)
	}

	return &chatResp, nil
}
