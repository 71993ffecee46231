package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const (
	connectionTestPrompt    = `Hello, please respond with "API connection successful"`
	connectionTestMaxTokens = 50
	connectionTestTemp      = 0.1
)

// TestConnection sends a fixed prompt through provider and reports the result.
// Provider failures are part of the result, not an error.
func (s *Service) TestConnection(ctx context.Context, provider, model string) (*domain.ConnectionTestResult, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, apperr.Invalid("provider", err.Error())
	}
	if model == "" {
		model = llm.DefaultModel(provider)
	}

	// Usage is persisted even if the caller goes away mid-call.
	persistCtx := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(persistCtx, s.config.API.RequestTimeout)
	defer cancel()

	start := time.Now()
	completion, err := p.Complete(callCtx, llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{{Role: string(domain.MessageRoleUser), Content: connectionTestPrompt}},
		Temperature: connectionTestTemp,
		MaxTokens:   connectionTestMaxTokens,
	})
	latency := time.Since(start)
	result := &domain.ConnectionTestResult{Model: model, Latency: latency.Seconds()}

	if err != nil {
		s.recordFailureFor(persistCtx, 0, provider, "", domain.RequestTypeConnectionTest, model, latency, err)
		result.Message = err.Error()
		return result, nil
	}

	used := completion.Model
	if used == "" {
		used = model
	}
	cost := s.pricing.Price(provider, used, completion.InputTokens, completion.OutputTokens)
	if err := s.store.RecordUsage(persistCtx, &domain.UsageRecord{
		Provider:     provider,
		Model:        used,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		TotalTokens:  completion.TotalTokens,
		Cost:         cost,
		Currency:     s.pricing.Currency(),
		RequestType:  domain.RequestTypeConnectionTest,
		LatencyMs:    latency.Milliseconds(),
		Success:      true,
		CreatedAt:    s.now(),
	}); err != nil {
		s.log.Warn("failed to record connection test usage", "provider", provider, "error", err)
	}
	s.metrics.ObserveCompletion(provider, used, true, latency, completion.InputTokens, completion.OutputTokens, cost)

	result.Success = true
	result.Message = "Connection successful"
	result.Model = used
	result.Response = completion.Text
	return result, nil
}

// AvailableModels lists the models offered for a registered provider.
func (s *Service) AvailableModels(provider string) ([]string, error) {
	if _, err := s.providers.Get(provider); err != nil {
		return nil, apperr.Invalid("provider", err.Error())
	}
	return llm.AvailableModels(provider), nil
}

// Providers lists registered provider identifiers.
func (s *Service) Providers() []string {
	return s.providers.IDs()
}
