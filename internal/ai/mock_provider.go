package ai

import (
	"context"
	"encoding/json"
	"sync"
)

// MockProvider is a test provider that records calls and returns queued responses.
type MockProvider struct {
	name      string
	responses []MockResponse
	calls     []MockCall
	mu        sync.Mutex
	respIndex int
}

// MockResponse represents a pre-configured response for the mock provider.
type MockResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
	Error     error
}

// MockCall records information about a call to GenerateResponse.
type MockCall struct {
	Request *GenerateRequest
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name.
func (m *MockProvider) Name() string {
	return m.name
}

// GenerateResponse records the call and returns the next queued response. Once the
// queue is exhausted the last response is repeated.
func (m *MockProvider) GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Request: req})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.responses) == 0 {
		return &GenerateResponse{Content: `{"questions": []}`}, nil
	}

	resp := m.responses[min(m.respIndex, len(m.responses)-1)]
	m.respIndex++
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &GenerateResponse{
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     resp.Usage,
	}, nil
}

// AddResponse queues a plain-content response.
func (m *MockProvider) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Content: content, Usage: mockUsage})
}

// AddToolCall queues a response carrying a single tool call with the given arguments.
func (m *MockProvider) AddToolCall(tool string, arguments string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{
		ToolCalls: []ToolCall{{ID: "call_mock", Name: tool, Arguments: json.RawMessage(arguments)}},
		Usage:     mockUsage,
	})
}

// AddErrorResponse queues an error.
func (m *MockProvider) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Error: err})
}

// GetCalls returns all recorded calls.
func (m *MockProvider) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// GetCallCount returns the number of times GenerateResponse was called.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call, or nil if no calls have been made.
func (m *MockProvider) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return &m.calls[len(m.calls)-1]
}

// Reset clears all recorded calls and responses.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.respIndex = 0
}

var mockUsage = Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
