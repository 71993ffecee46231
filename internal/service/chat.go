package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/commerce"
	"github.com/xiaot623/gogo/chatbot/internal/contact"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const (
	componentEngine  = "chatbot_engine"
	componentContact = "contact_manager"

	labelSiteContent = "Relevant site content:"
	labelOrderInfo   = "Order information:"
	labelAttachments = "Attached files:"

	sessionTokenBytes = 20
)

// ProcessMessage runs one conversation turn: it persists the user message,
// grounds the prompt, calls the chatbot's provider and records the outcome.
// Returned errors are internal; transports show apperr.UserMessage(err).
func (s *Service) ProcessMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	start := s.now()

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, apperr.Invalid("message", "message is required")
	}
	if req.ChatbotID <= 0 {
		return nil, apperr.Invalid("chatbot_id", "chatbot_id is required")
	}

	bot, err := s.store.GetChatbot(ctx, req.ChatbotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chatbot: %w", err)
	}
	if bot == nil {
		return nil, apperr.NotFound("chatbot", fmt.Sprint(req.ChatbotID))
	}

	session, err := s.openSession(ctx, bot, req, start)
	if err != nil {
		s.log.Error("failed to open session", "chatbot_id", bot.ID, "error", err)
		return nil, err
	}
	fields := map[string]any{"chatbot_id": bot.ID, "session_id": session.SessionID}

	attached := s.resolveAttachments(ctx, session.SessionID, req.Attachments)
	userMsg := &domain.Message{
		MessageID: uuid.NewString(),
		SessionID: session.SessionID,
		ChatbotID: bot.ID,
		Role:      domain.MessageRoleUser,
		Content:   text,
		CreatedAt: start,
	}
	for _, f := range attached {
		userMsg.Attachments = append(userMsg.Attachments, f.FileID)
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		s.log.Error("failed to persist user message", "chatbot_id", bot.ID, "session_id", session.SessionID, "error", err)
		s.debug(ctx, domain.DebugLevelError, componentEngine, err.Error(), fields)
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	// A turn whose provider call fails still counts as activity.
	if err := s.store.UpdateSessionActivity(ctx, session.SessionID, start); err != nil {
		s.log.Warn("failed to update session activity", "session_id", session.SessionID, "error", err)
	}

	if s.config.Contacts.CaptureEnabled {
		s.bestEffort(ctx, componentContact, fields, func(ctx context.Context) error {
			return s.captureContact(ctx, bot, session, text)
		})
	}

	history, err := s.loadHistory(ctx, session.SessionID, bot.MaxMemory, userMsg.MessageID)
	if err != nil {
		// History only improves the answer; continue without it.
		s.log.Warn("failed to load history", "session_id", session.SessionID, "error", err)
		history = nil
	}

	sections := s.grounding(ctx, text, fields)
	if section := attachmentSection(attached, s.config.Training.SnippetChars); section != "" {
		sections = append(sections, section)
	}
	prompt := buildPrompt(bot, sections, history, text)

	// The provider call outlives a departed client so its usage is still recorded.
	persistCtx := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(persistCtx, s.config.API.RequestTimeout)
	defer cancel()

	callStart := time.Now()
	completion, err := s.providers.Complete(callCtx, bot.Provider, llm.CompletionRequest{
		Model:       bot.Model,
		Messages:    prompt,
		Temperature: bot.Temperature,
		MaxTokens:   bot.MaxTokens,
	})
	latency := time.Since(callStart)
	if err != nil {
		s.recordFailure(persistCtx, bot, session.SessionID, domain.RequestTypeChat, bot.Model, latency, err)
		s.metrics.ObserveMessage(bot.Provider, false)
		s.log.Error("provider call failed",
			"chatbot_id", bot.ID, "session_id", session.SessionID, "provider", bot.Provider,
			"model", bot.Model, "latency_ms", latency.Milliseconds(), "error", err)
		s.debug(persistCtx, domain.DebugLevelError, componentEngine, err.Error(), fields)
		return nil, fmt.Errorf("provider %s: %w", bot.Provider, err)
	}

	model := completion.Model
	if model == "" {
		model = bot.Model
	}
	cost := s.pricing.Price(bot.Provider, model, completion.InputTokens, completion.OutputTokens)
	finished := s.now()
	responseTime := finished.Sub(start)

	assistantMsg := &domain.Message{
		MessageID:    uuid.NewString(),
		SessionID:    session.SessionID,
		ChatbotID:    bot.ID,
		Role:         domain.MessageRoleAssistant,
		Content:      text,
		Response:     completion.Text,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		TotalTokens:  completion.TotalTokens,
		Cost:         cost,
		Model:        model,
		LatencyMs:    responseTime.Milliseconds(),
		CreatedAt:    finished,
	}
	persistErr := s.store.AppendMessage(persistCtx, assistantMsg)

	usageErr := s.store.RecordUsage(persistCtx, &domain.UsageRecord{
		UsageID:      uuid.NewString(),
		SessionID:    session.SessionID,
		ChatbotID:    bot.ID,
		Provider:     bot.Provider,
		Model:        model,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
		TotalTokens:  completion.TotalTokens,
		Cost:         cost,
		Currency:     s.pricing.Currency(),
		RequestType:  domain.RequestTypeChat,
		LatencyMs:    latency.Milliseconds(),
		Success:      true,
		CreatedAt:    finished,
	})
	if usageErr != nil {
		s.log.Error("failed to record usage", "session_id", session.SessionID, "error", usageErr)
	}

	if err := s.store.UpdateSessionActivity(persistCtx, session.SessionID, finished); err != nil {
		s.log.Warn("failed to update session activity", "session_id", session.SessionID, "error", err)
	}

	s.metrics.ObserveCompletion(bot.Provider, model, true, latency, completion.InputTokens, completion.OutputTokens, cost)

	if persistErr != nil {
		s.metrics.ObserveMessage(bot.Provider, false)
		s.log.Error("failed to persist assistant message", "session_id", session.SessionID, "error", persistErr)
		s.debug(persistCtx, domain.DebugLevelError, componentEngine, persistErr.Error(), fields)
		return nil, fmt.Errorf("failed to persist assistant message: %w", persistErr)
	}
	s.metrics.ObserveMessage(bot.Provider, true)

	return &domain.ChatResponse{
		Message:      completion.Text,
		SessionID:    session.SessionID,
		Tokens:       completion.TotalTokens,
		Cost:         cost,
		ResponseTime: math.Round(responseTime.Seconds()*1000) / 1000,
	}, nil
}

// openSession reuses the requested session when it is active and belongs to
// bot. Otherwise a fresh session with a new token is created.
func (s *Service) openSession(ctx context.Context, bot *domain.Chatbot, req domain.ChatRequest, now time.Time) (*domain.Session, error) {
	if req.SessionID != "" && !req.ResetSession {
		existing, err := s.store.GetSession(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if existing != nil && existing.ChatbotID == bot.ID && existing.Status == domain.SessionStatusActive {
			return existing, nil
		}
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	session := &domain.Session{
		SessionID:    token,
		ChatbotID:    bot.ID,
		Client:       req.Client,
		Status:       domain.SessionStatusActive,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Debug("session opened", "session_id", token, "chatbot_id", bot.ID)
	return session, nil
}

func (s *Service) captureContact(ctx context.Context, bot *domain.Chatbot, session *domain.Session, text string) error {
	info := contact.Extract(text)
	if info.Empty() {
		return nil
	}
	c := domain.Contact{
		ContactID: uuid.NewString(),
		SessionID: session.SessionID,
		ChatbotID: bot.ID,
		Name:      info.Name,
		Email:     info.Email,
		Phone:     info.Phone,
		Company:   info.Company,
		Message:   text,
		Source:    domain.ContactSourceChat,
		Status:    domain.ContactStatusNew,
		Client:    session.Client,
		CreatedAt: s.now(),
	}
	if err := s.store.SaveContact(ctx, &c); err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	s.metrics.ContactCaptured(string(c.Source))
	if s.notifier != nil {
		if err := s.notifier.ContactCaptured(ctx, c); err != nil {
			return fmt.Errorf("failed to notify contact: %w", err)
		}
	}
	return nil
}

// loadHistory returns up to limit earlier turns, oldest first, excluding the
// message being answered and assistant turns without a response.
func (s *Service) loadHistory(ctx context.Context, sessionID string, limit int, currentID string) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.store.GetHistory(ctx, sessionID, limit+1)
	if err != nil {
		return nil, err
	}
	history := make([]domain.Message, 0, len(rows))
	for _, m := range rows {
		if m.MessageID == currentID {
			continue
		}
		switch m.Role {
		case domain.MessageRoleUser:
			history = append(history, m)
		case domain.MessageRoleAssistant:
			if strings.TrimSpace(m.Response) != "" {
				history = append(history, m)
			}
		}
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// grounding collects the labelled sections appended to the system prompt.
func (s *Service) grounding(ctx context.Context, text string, fields map[string]any) []string {
	var sections []string

	if snippets := s.searcher.Search(ctx, text, s.config.Training.SearchLimit); len(snippets) > 0 {
		sections = append(sections, labelSiteContent+"\n"+strings.Join(snippets, "\n"))
	}

	if s.orders == nil || !s.config.Commerce.Enabled || !commerce.HasOrderIntent(text) {
		return sections
	}
	number := commerce.ExtractOrderNumber(text)
	if number == "" {
		return sections
	}
	info, err := s.orders.LookupOrder(ctx, number, contact.Email(text))
	switch {
	case err == nil:
	case apperr.IsNotFound(err):
		info = commerce.MsgNotFound
	default:
		s.log.Warn("order lookup failed", "order_number", number, "error", err)
		s.debug(ctx, domain.DebugLevelWarning, "commerce", err.Error(), fields)
		return sections
	}
	return append(sections, labelOrderInfo+"\n"+info)
}

// buildPrompt assembles the system message, prior turns and the current message.
func buildPrompt(bot *domain.Chatbot, grounding []string, history []domain.Message, text string) []llm.Message {
	system := bot.SystemPrompt
	for _, section := range grounding {
		system += "\n\n" + section
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: string(domain.MessageRoleSystem), Content: system})
	for _, m := range history {
		switch m.Role {
		case domain.MessageRoleUser:
			messages = append(messages, llm.Message{Role: string(domain.MessageRoleUser), Content: m.Content})
		case domain.MessageRoleAssistant:
			messages = append(messages, llm.Message{Role: string(domain.MessageRoleAssistant), Content: m.Response})
		}
	}
	return append(messages, llm.Message{Role: string(domain.MessageRoleUser), Content: text})
}

// recordFailure writes the usage record of a failed provider call.
func (s *Service) recordFailure(ctx context.Context, bot *domain.Chatbot, sessionID string, kind domain.RequestType, model string, latency time.Duration, cause error) {
	s.recordFailureFor(ctx, bot.ID, bot.Provider, sessionID, kind, model, latency, cause)
}

// recordFailureFor ignores cancellation of ctx.
func (s *Service) recordFailureFor(ctx context.Context, chatbotID int64, provider, sessionID string, kind domain.RequestType, model string, latency time.Duration, cause error) {
	err := s.store.RecordUsage(context.WithoutCancel(ctx), &domain.UsageRecord{
		UsageID:     uuid.NewString(),
		SessionID:   sessionID,
		ChatbotID:   chatbotID,
		Provider:    provider,
		Model:       model,
		Currency:    s.pricing.Currency(),
		RequestType: kind,
		LatencyMs:   latency.Milliseconds(),
		Success:     false,
		Error:       cause.Error(),
		CreatedAt:   s.now(),
	})
	if err != nil {
		s.log.Error("failed to record failed usage", "session_id", sessionID, "provider", provider, "error", err)
	}
	s.metrics.ObserveCompletion(provider, model, false, latency, 0, 0, 0)
}

// newSessionToken returns an unguessable session identifier.
func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + hex.EncodeToString(b), nil
}
