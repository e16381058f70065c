// Package ai defines the generation provider contract used by the quiz composer
// and the adapters that implement it.
package ai

import (
	"context"
	"encoding/json"
)

// Provider generates a response for a chat-style request.
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest represents a request to generate an AI response.
type GenerateRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model,omitempty"`
	Tools       []Tool        `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"` // name of the tool the model must call
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

// GenerateResponse represents an AI provider's response.
type GenerateResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage,omitempty"`
}

// ChatMessage represents a message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Tool represents a function the model can call. Parameters is a JSON Schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall represents a function call emitted by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Usage represents token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StructuredOutput returns the arguments of the call to the named tool, falling back
// to the first tool call and then to the message content.
func (r *GenerateResponse) StructuredOutput(tool string) json.RawMessage {
	for _, tc := range r.ToolCalls {
		if tc.Name == tool {
			return tc.Arguments
		}
	}
	if len(r.ToolCalls) > 0 {
		return r.ToolCalls[0].Arguments
	}
	return json.RawMessage(r.Content)
}
