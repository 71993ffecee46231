package llm

import (
	"context"
	"fmt"
)

// MockProvider answers without any network access.
type MockProvider struct {
	id string
}

// NewMockProvider creates a mock registered under id.
func NewMockProvider(id string) *MockProvider {
	return &MockProvider{id: id}
}

// Ensure MockProvider implements Provider.
var _ Provider = (*MockProvider)(nil)

func (m *MockProvider) ID() string {
	return m.id
}

// Complete echoes the last user message.
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := m.generateMockResponse(req)
	in := estimateTokens(req.Messages)
	out := len(text) / 4
	return &Completion{
		Text:         text,
		Model:        req.Model,
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}, nil
}

func (m *MockProvider) generateMockResponse(req CompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func estimateTokens(messages []Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content) / 4
	}
	return total
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
