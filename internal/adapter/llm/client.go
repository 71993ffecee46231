package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
)

const maxResponseBytes = 4 << 20

var tracer = otel.Tracer("github.com/xiaot623/gogo/chatbot/internal/adapter/llm")

// Client is an OpenAI-compatible chat completions client. Each provider
// configures its endpoint, headers and usage dialect.
type Client struct {
	id         string
	endpoint   string
	missing    string
	httpClient *http.Client
	headers    func(*http.Request)
	usage      func(*chatCompletionResponse) (int, int, int)
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`

	// Ollama-backed gateways report counts at the top level.
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
}

// errorResponse covers the OpenAI envelope and the FastAPI style {"detail": ...}.
type errorResponse struct {
	Error  *apiError       `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}

func newHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// ID returns the provider identifier.
func (c *Client) ID() string {
	return c.id
}

// Complete sends a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if c.missing != "" {
		return nil, &apperr.ConfigError{Provider: c.id, Message: c.missing}
	}

	ctx, span := tracer.Start(ctx, "llm.complete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.id),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	out, err := c.do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("llm.input_tokens", out.InputTokens),
		attribute.Int("llm.output_tokens", out.OutputTokens),
	)
	return out, nil
}

func (c *Client) do(ctx context.Context, req CompletionRequest) (*Completion, error) {
	payload := chatCompletionRequest{
		Model:    req.Model,
		Messages: req.Messages,
	}
	temperature := req.Temperature
	payload.Temperature = &temperature
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		payload.MaxTokens = &maxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &apperr.ProviderError{Provider: c.id, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.headers != nil {
		c.headers(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &apperr.ProviderError{Provider: c.id, Message: fmt.Sprintf("failed to send request: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &apperr.ProviderError{Provider: c.id, HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.ProviderError{Provider: c.id, HTTPStatus: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &apperr.ProviderError{Provider: c.id, HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return nil, &apperr.ProviderError{Provider: c.id, HTTPStatus: resp.StatusCode, Message: "response contained no choices"}
	}

	in, out, total := c.usage(&result)
	model := result.Model
	if model == "" {
		model = req.Model
	}
	return &Completion{
		Text:         strings.TrimSpace(result.Choices[0].Message.Content),
		Model:        model,
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  total,
	}, nil
}

func errorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error != nil && errResp.Error.Message != "" {
			if errResp.Error.Type != "" {
				return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
			}
			return errResp.Error.Message
		}
		if len(errResp.Detail) > 0 {
			var detail string
			if json.Unmarshal(errResp.Detail, &detail) == nil {
				return detail
			}
			return string(errResp.Detail)
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		return "empty error response"
	}
	return msg
}

// openAIUsage reads the prompt/completion dialect.
func openAIUsage(r *chatCompletionResponse) (int, int, int) {
	if r.Usage == nil {
		return 0, 0, 0
	}
	in, out := r.Usage.PromptTokens, r.Usage.CompletionTokens
	total := r.Usage.TotalTokens
	if total == 0 {
		total = in + out
	}
	return in, out, total
}

// gatewayUsage accepts the OpenAI dialect, input/output naming, or Ollama eval counts.
func gatewayUsage(r *chatCompletionResponse) (int, int, int) {
	var in, out, total int
	switch {
	case r.Usage != nil && (r.Usage.PromptTokens > 0 || r.Usage.CompletionTokens > 0):
		in, out, total = r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens
	case r.Usage != nil && (r.Usage.InputTokens > 0 || r.Usage.OutputTokens > 0):
		in, out, total = r.Usage.InputTokens, r.Usage.OutputTokens, r.Usage.TotalTokens
	default:
		in, out = r.PromptEvalCount, r.EvalCount
	}
	if total == 0 {
		total = in + out
	}
	return in, out, total
}
