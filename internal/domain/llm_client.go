package domain

import "context"

// Message is one turn of a chat exchange with the generation service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse carries the generation output and whether it finished.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMClient sends chat prompts to the generation service.
type LLMClient interface {
	Generate(ctx context.Context, messages []Message, maxTokens int) (*LLMResponse, error)
	Version() string
}
