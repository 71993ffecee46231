// Package mail sends plain-text notification mail through the SendGrid v3 API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
)

const defaultBaseURL = "https://api.sendgrid.com"

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is a single plain-text mail. An empty From uses the configured sender.
type Message struct {
	From    Address
	To      []Address
	Subject string
	Text    string
}

type Config struct {
	APIKey  string
	BaseURL string
	From    Address
	Timeout time.Duration
	Client  *http.Client
}

// SendGrid posts to /v3/mail/send.
type SendGrid struct {
	apiKey     string
	baseURL    string
	from       Address
	httpClient *http.Client
}

func NewSendGrid(cfg Config) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &apperr.ConfigError{Provider: "sendgrid", Message: "missing API key"}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &SendGrid{apiKey: cfg.APIKey, baseURL: base, from: cfg.From, httpClient: client}, nil
}

type personalization struct {
	To []Address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type errorItem struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HTTPError is a non-2xx reply from SendGrid.
type HTTPError struct {
	StatusCode int
	Body       string
	Errors     []errorItem
}

func (e *HTTPError) Error() string {
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Errors[0].Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

// Send delivers msg. It does not retry.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if from.Email == "" {
		from = s.from
	}
	switch {
	case from.Email == "":
		return fmt.Errorf("sendgrid: from address required")
	case len(msg.To) == 0:
		return fmt.Errorf("sendgrid: recipient required")
	case strings.TrimSpace(msg.Subject) == "":
		return fmt.Errorf("sendgrid: subject required")
	}

	body, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: msg.To}},
		From:             from,
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/plain", Value: msg.Text}},
	})
	if err != nil {
		return fmt.Errorf("sendgrid: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var er struct {
			Errors []errorItem `json:"errors"`
		}
		if json.Unmarshal(raw, &er) == nil {
			he.Errors = er.Errors
		}
		return he
	}
	return nil
}
