package domain

// ChatRequest is the inbound transport request for one message.
type ChatRequest struct {
	ChatbotID    int64      `json:"chatbot_id"`
	SessionID    string     `json:"session_id,omitempty"`
	Message      string     `json:"message"`
	ResetSession bool       `json:"reset_session,omitempty"`
	Attachments  []string   `json:"attachments,omitempty"` // file IDs uploaded to the same session
	Client       ClientInfo `json:"-"`
}

// ChatResponse is returned for a successfully processed message.
type ChatResponse struct {
	Message      string  `json:"message"`
	SessionID    string  `json:"session_id"`
	Tokens       int     `json:"tokens"`
	Cost         float64 `json:"cost"`
	ResponseTime float64 `json:"response_time"`
}

// CloseSessionRequest ends a session.
type CloseSessionRequest struct {
	Status SessionStatus `json:"status"`
}

// ConnectionTestRequest selects the model used for a provider self-test.
type ConnectionTestRequest struct {
	Model string `json:"model,omitempty"`
}

// ConnectionTestResult is the outcome of a provider self-test.
type ConnectionTestResult struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Model    string  `json:"model,omitempty"`
	Response string  `json:"response,omitempty"`
	Latency  float64 `json:"latency_seconds"`
}

// UpdateContactRequest changes the follow-up status of a contact.
type UpdateContactRequest struct {
	Status ContactStatus `json:"status"`
}
