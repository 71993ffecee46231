package domain

import "time"

// ClientInfo is the opaque client identity attached to a session.
type ClientInfo struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// Session is a bounded conversation between one client and one chatbot.
type Session struct {
	SessionID     string        `json:"session_id"`
	ChatbotID     int64         `json:"chatbot_id"`
	Client        ClientInfo    `json:"client"`
	Status        SessionStatus `json:"status"`
	TotalMessages int           `json:"total_messages"`
	TotalTokens   int           `json:"total_tokens"`
	TotalCost     float64       `json:"total_cost"`
	CreatedAt     time.Time     `json:"created_at"`
	LastActivity  time.Time     `json:"last_activity"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
}

// Message is one side of a turn. Assistant turns carry the user text they
// answer in Content and the reply in Response.
type Message struct {
	MessageID    string      `json:"message_id"`
	SessionID    string      `json:"session_id"`
	ChatbotID    int64       `json:"chatbot_id"`
	Role         MessageRole `json:"role"`
	Content      string      `json:"content"`
	Response     string      `json:"response,omitempty"`
	InputTokens  int         `json:"input_tokens"`
	OutputTokens int         `json:"output_tokens"`
	TotalTokens  int         `json:"total_tokens"`
	Cost         float64     `json:"cost"`
	Model        string      `json:"model,omitempty"`
	LatencyMs    int64       `json:"latency_ms"`
	Error        string      `json:"error,omitempty"`
	Attachments  []string    `json:"attachments,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DebugLog is a persisted diagnostic entry.
type DebugLog struct {
	ID        string         `json:"id"`
	Level     DebugLevel     `json:"level"`
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
