package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra/httpclient"
)

const generationTemperature = 0.1

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generator sends chat prompts to Mistral's completion endpoint.
type Generator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGenerator constructs a generator for the given endpoint and model.
func NewGenerator(baseURL, apiKey, model string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  httpclient.NewPooledClient(120 * time.Second),
	}
}

// Generate sends the messages and returns the assistant reply. Client-side
// errors are marked permanent so the retry policy stops early; timeouts and
// 5xx are left retryable.
func (g *Generator) Generate(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.LLMResponse, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: generationTemperature,
	})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal chat request: %w", err))
	}

	url := fmt.Sprintf("%s/v1/chat/completions", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create chat request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("generation response has no choices")
	}

	choice := chatResp.Choices[0]
	return &domain.LLMResponse{
		Text: strings.TrimSpace(choice.Message.Content),
		Done: choice.FinishReason != "length",
	}, nil
}

// Version returns the wrapped model name.
func (g *Generator) Version() string { return g.model }

var _ domain.LLMClient = (*Generator)(nil)
