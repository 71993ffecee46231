package ws

import "github.com/xiaot623/gogo/chatbot/internal/domain"

// Frame types from client to server
const (
	TypeChat = "chat"
)

// Frame types from server to client
const (
	TypeReply = "reply"
	TypeError = "error"
)

// BaseFrame carries the fields shared by every frame.
type BaseFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatFrame asks the engine to process one message.
type ChatFrame struct {
	BaseFrame
	ChatbotID    int64    `json:"chatbot_id"`
	SessionID    string   `json:"session_id,omitempty"`
	Message      string   `json:"message"`
	ResetSession bool     `json:"reset_session,omitempty"`
	Attachments  []string `json:"attachments,omitempty"`
}

// ReplyFrame carries the engine response.
type ReplyFrame struct {
	BaseFrame
	domain.ChatResponse
}

// ErrorFrame reports a failed request. Error is always client-safe text.
type ErrorFrame struct {
	BaseFrame
	Error string `json:"error"`
}
