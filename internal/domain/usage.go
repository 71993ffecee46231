package domain

import "time"

// UsageRecord is the accounting entry for one provider call.
type UsageRecord struct {
	UsageID      string      `json:"usage_id"`
	SessionID    string      `json:"session_id"`
	ChatbotID    int64       `json:"chatbot_id"`
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	InputTokens  int         `json:"input_tokens"`
	OutputTokens int         `json:"output_tokens"`
	TotalTokens  int         `json:"total_tokens"`
	Cost         float64     `json:"cost"`
	Currency     string      `json:"currency"`
	RequestType  RequestType `json:"request_type"`
	LatencyMs    int64       `json:"latency_ms"`
	Success      bool        `json:"success"`
	Error        string      `json:"error,omitempty"`
	Date         string      `json:"date"`
	CreatedAt    time.Time   `json:"created_at"`
}

// UsageStats aggregates usage over a period.
type UsageStats struct {
	Sessions        int     `json:"sessions"`
	Messages        int     `json:"messages"`
	Requests        int     `json:"requests"`
	FailedRequests  int     `json:"failed_requests"`
	TotalTokens     int     `json:"total_tokens"`
	TotalCost       float64 `json:"total_cost"`
	AvgResponseTime float64 `json:"avg_response_time"`
	SuccessRate     float64 `json:"success_rate"`
}

// DailyUsage is one bucket of the daily usage chart.
type DailyUsage struct {
	Date     string  `json:"date"`
	Requests int     `json:"requests"`
	Tokens   int     `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// ModelUsage is token usage grouped by provider and model.
type ModelUsage struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Requests     int     `json:"requests"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost"`
}

// SessionUsage summarizes one session for reports and exports.
type SessionUsage struct {
	SessionID    string        `json:"session_id"`
	ChatbotID    int64         `json:"chatbot_id"`
	Status       SessionStatus `json:"status"`
	Messages     int           `json:"messages"`
	Tokens       int           `json:"tokens"`
	Cost         float64       `json:"cost"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// UsageFilter bounds analytics queries. Zero values mean unbounded.
type UsageFilter struct {
	ChatbotID int64
	From      time.Time
	To        time.Time
	Limit     int
}
