// Package llm provides chat-completion providers behind a common interface.
package llm

import "context"

// Provider identifiers.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOpenWebUI  = "open_webui"
)

// Message is one prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral chat completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion is the normalized result of a chat completion.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Provider is a chat-completion backend.
type Provider interface {
	// ID returns the provider identifier used for registry lookup and pricing.
	ID() string
	// Complete sends one non-streaming completion. Missing credentials yield an
	// *apperr.ConfigError without any network call; transport, HTTP and
	// decoding failures yield an *apperr.ProviderError.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
