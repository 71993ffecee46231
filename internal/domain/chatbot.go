package domain

import "time"

// Chatbot is a chatbot configuration. It is read-only for the duration of a turn.
type Chatbot struct {
	ID           int64         `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Slug         string        `json:"slug" yaml:"slug"`
	SystemPrompt string        `json:"system_prompt" yaml:"system_prompt"`
	Greeting     string        `json:"greeting" yaml:"greeting"`
	Model        string        `json:"model" yaml:"model"`
	Provider     string        `json:"provider" yaml:"provider"`
	Temperature  float64       `json:"temperature" yaml:"temperature"`
	MaxTokens    int           `json:"max_tokens" yaml:"max_tokens"`
	MaxMemory    int           `json:"max_memory" yaml:"max_memory"`
	Status       ChatbotStatus `json:"status" yaml:"status"`
	CreatedAt    time.Time     `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"-"`
}

// DefaultChatbot returns the configuration seeded when no chatbot exists.
func DefaultChatbot() Chatbot {
	return Chatbot{
		Name:         "Default Assistant",
		Slug:         "default-assistant",
		SystemPrompt: "You are a helpful AI assistant for this website. Provide accurate and helpful information to users. Be friendly, professional, and concise in your responses.",
		Greeting:     "Hello! I'm here to help you. How can I assist you today?",
		Model:        "gpt-3.5-turbo",
		Provider:     "openai",
		Temperature:  0.7,
		MaxTokens:    1000,
		MaxMemory:    10,
		Status:       ChatbotStatusActive,
	}
}
