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

// Ensure GeminiGenerative implements GenerativeService
var _ driven.GenerativeService = (*GeminiGenerative)(nil)

// GeminiGenerative implements GenerativeService using the Google
// Generative Language generateContent API
type GeminiGenerative struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiGenerative creates a new Gemini generative service
func NewGeminiGenerative(apiKey, model, baseURL string) (driven.GenerativeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	if model == "" {
		model = "gemini-1.5-flash"
	}

	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &GeminiGenerative{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// geminiGenerateRequest is the generateContent request body
type geminiGenerateRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiMessage `json:"contents"`
}

// geminiMessage is one turn of the conversation. Gemini uses "model"
// where the domain uses "assistant".
type geminiMessage struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

// Generate produces a reply to the conversation under the given system
// instruction
func (g *GeminiGenerative) Generate(ctx context.Context, systemInstruction string, history []domain.Turn) (string, error) {
	reqBody := geminiGenerateRequest{
		Contents: toGeminiMessages(history),
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemInstruction}},
		}
	}

	respBody, err := g.doRequest(ctx, reqBody)
	if err != nil {
		return "", err
	}

	var genResp geminiGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", domain.ErrGenerationService, err)
	}
	if genResp.Error != nil {
		return "", fmt.Errorf("%w: %s (status: %s)", domain.ErrGenerationService, genResp.Error.Message, genResp.Error.Status)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", domain.ErrGenerationService)
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// RewriteQuery rephrases a follow-up question into a standalone
// question using the chat history
func (g *GeminiGenerative) RewriteQuery(ctx context.Context, history []domain.Turn, question string) (string, error) {
	instruction := "Given the chat history and the latest user question, rephrase the latest question into a standalone question that can be understood without the history. Do NOT answer the question. If it is already standalone, return it unchanged."

	turns := append(append([]domain.Turn(nil), history...), domain.Turn{
		Role:    domain.RoleUser,
		Content: question,
	})
	return g.Generate(ctx, instruction, turns)
}

// Model returns the model name being used
func (g *GeminiGenerative) Model() string {
	return g.model
}

// Ping verifies the generative service is available
func (g *GeminiGenerative) Ping(ctx context.Context) error {
	_, err := g.Generate(ctx, "", []domain.Turn{{Role: domain.RoleUser, Content: "ping"}})
	return err
}

// Close releases resources held by the generative service
func (g *GeminiGenerative) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func (g *GeminiGenerative) doRequest(ctx context.Context, reqBody geminiGenerateRequest) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrGenerationService, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrGenerationService, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error *geminiError `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%w: %s (status: %s)", domain.ErrGenerationService, errResp.Error.Message, errResp.Error.Status)
		}
		return nil, fmt.Errorf("%w: Gemini API returned status %d", domain.ErrGenerationService, resp.StatusCode)
	}

	return respBody, nil
}

// toGeminiMessages converts domain turns to the Gemini wire roles
func toGeminiMessages(history []domain.Turn) []geminiMessage {
	messages := make([]geminiMessage, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "model"
		}
		messages = append(messages, geminiMessage{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}
	return messages
}
