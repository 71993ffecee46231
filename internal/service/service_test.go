package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/commerce"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
	"github.com/xiaot623/gogo/chatbot/internal/policy"
	"github.com/xiaot623/gogo/chatbot/internal/repository"
	"github.com/xiaot623/gogo/chatbot/tests/helpers"
)

// scriptedProvider records requests and answers through reply.
type scriptedProvider struct {
	id    string
	reply func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)

	mu       sync.Mutex
	requests []llm.CompletionRequest
}

func (p *scriptedProvider) ID() string { return p.id }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	return p.reply(ctx, req)
}

func (p *scriptedProvider) lastRequest(t *testing.T) llm.CompletionRequest {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.requests)
	return p.requests[len(p.requests)-1]
}

func fixedReply(text string, in, out int) func(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
	return func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
		return &llm.Completion{Text: text, Model: req.Model, InputTokens: in, OutputTokens: out, TotalTokens: in + out}, nil
	}
}

type fixture struct {
	svc      *Service
	store    *repository.SQLiteStore
	provider *scriptedProvider
	bot      *domain.Chatbot
	cfg      *config.Config
}

func newFixture(t *testing.T, mutate func(cfg *config.Config), opts ...Option) *fixture {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	store := helpers.NewTestSQLiteStore(t)
	provider := &scriptedProvider{id: llm.ProviderOpenAI, reply: fixedReply("Hi there!", 100, 20)}
	registry := llm.NewRegistry()
	registry.MustRegister(provider)

	bot := helpers.SeedChatbot(t, store, domain.Chatbot{
		SystemPrompt: "You are a helpful assistant.",
		Model:        "gpt-3.5-turbo",
		Provider:     llm.ProviderOpenAI,
		MaxMemory:    4,
	})
	svc := New(store, registry, cfg, logger.NewNop(), opts...)
	return &fixture{svc: svc, store: store, provider: provider, bot: bot, cfg: cfg}
}

func TestProcessMessagePersistsTurnAndUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "  Hello  "})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Message)
	assert.True(t, strings.HasPrefix(resp.SessionID, "sess_"))
	assert.Len(t, resp.SessionID, len("sess_")+2*sessionTokenBytes)
	assert.Equal(t, 120, resp.Tokens)
	// 100/1000*0.0015 + 20/1000*0.002
	assert.InDelta(t, 0.00019, resp.Cost, 1e-9)

	history, err := f.store.GetHistory(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.MessageRoleUser, history[0].Role)
	assert.Equal(t, "Hello", history[0].Content)
	assert.Equal(t, domain.MessageRoleAssistant, history[1].Role)
	assert.Equal(t, "Hi there!", history[1].Response)
	assert.Equal(t, "gpt-3.5-turbo", history[1].Model)

	usage, err := f.store.ListUsage(ctx, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.True(t, usage[0].Success)
	assert.Equal(t, "USD", usage[0].Currency)

	session, err := f.store.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.TotalMessages)
	assert.Equal(t, 120, session.TotalTokens)
	assert.InDelta(t, resp.Cost, session.TotalCost, 1e-9)

	req := f.provider.lastRequest(t)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "You are a helpful assistant.", req.Messages[0].Content)
	assert.Equal(t, llm.Message{Role: "user", Content: "Hello"}, req.Messages[1])
}

func TestProcessMessageReusesSessionAndBuildsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "first question"})
	require.NoError(t, err)
	second, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: first.SessionID, Message: "second question"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	req := f.provider.lastRequest(t)
	roles := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "first question", req.Messages[1].Content)
	assert.Equal(t, "Hi there!", req.Messages[2].Content)
	assert.Equal(t, "second question", req.Messages[3].Content)
}

func TestProcessMessageHistoryDepth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sessionID := ""
	for i := 0; i < 4; i++ {
		resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: sessionID, Message: "question"})
		require.NoError(t, err)
		sessionID = resp.SessionID
	}
	// system + 4 history rows (max_memory) + current message
	assert.Len(t, f.provider.lastRequest(t).Messages, 6)
}

func TestProcessMessageResetAndForeignSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hello"})
	require.NoError(t, err)

	reset, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: first.SessionID, Message: "again", ResetSession: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, reset.SessionID)

	// Reset keeps the old data.
	old, err := f.store.GetHistory(ctx, first.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, old, 2)

	unknown, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: "made-up", Message: "hi"})
	require.NoError(t, err)
	assert.NotEqual(t, "made-up", unknown.SessionID)

	_, err = f.svc.CloseSession(ctx, reset.SessionID, domain.SessionStatusCompleted)
	require.NoError(t, err)
	afterClose, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: reset.SessionID, Message: "hi"})
	require.NoError(t, err)
	assert.NotEqual(t, reset.SessionID, afterClose.SessionID)

	closed, err := f.store.GetSession(ctx, reset.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, closed.Status)
}

func TestProcessMessageValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "   "})
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: 999, Message: "hi"})
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, "Chatbot not found.", apperr.UserMessage(err))

	f.provider.mu.Lock()
	assert.Empty(t, f.provider.requests)
	f.provider.mu.Unlock()
}

func TestProcessMessageProviderTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.API.RequestTimeout = 50 * time.Millisecond })
	f.provider.reply = func(ctx context.Context, _ llm.CompletionRequest) (*llm.Completion, error) {
		<-ctx.Done()
		return nil, &apperr.ProviderError{Provider: llm.ProviderOpenAI, Message: ctx.Err().Error()}
	}

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "are you there?"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, apperr.GenericMessage, apperr.UserMessage(err))
	assert.NotContains(t, apperr.UserMessage(err), "deadline")

	sessions, err := f.store.ExportUsage(ctx, domain.UsageFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessionID := sessions[0].SessionID
	assert.Equal(t, 1, sessions[0].Messages, "only the user turn counts")
	assert.Equal(t, 0, sessions[0].Tokens)
	assert.Equal(t, 0.0, sessions[0].Cost)

	usage, err := f.store.ListUsage(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.False(t, usage[0].Success)
	assert.Equal(t, 0.0, usage[0].Cost)
	assert.Contains(t, usage[0].Error, "deadline exceeded")

	history, err := f.store.GetHistory(ctx, sessionID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "are you there?", history[0].Content)
}

func TestProcessMessageSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.provider.reply = func(callCtx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
		cancel()
		if err := callCtx.Err(); err != nil {
			return nil, err
		}
		return fixedReply("still here", 1, 1)(callCtx, req)
	}

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "still here", resp.Message)

	usage, err := f.store.ListUsage(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, usage, 1)
}

func TestProcessMessageMissingCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	// A fresh registry with an unconfigured client never reaches the network.
	registry := llm.NewRegistry()
	registry.MustRegister(llm.NewOpenAI(llm.OpenAIConfig{}, nil, time.Second))
	f.svc.providers = registry

	_, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hi"})
	var ce *apperr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, apperr.GenericMessage, apperr.UserMessage(err))

	stats, err := f.store.UsageStats(ctx, domain.UsageFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, 1, stats.FailedRequests)
}

func TestProcessMessageGroundsOnContentAndOrder(t *testing.T) {
	ctx := context.Background()
	var lookup *commerce.Lookup
	f := newFixture(t, func(cfg *config.Config) { cfg.Commerce.Enabled = true })

	engine, err := policy.NewEngine(ctx, policy.DefaultOrderPolicy)
	require.NoError(t, err)
	lookup = commerce.NewLookup(f.store, engine, commerce.Config{RequireEmail: true, MaxDaysBack: 365})
	f.svc.orders = lookup

	require.NoError(t, f.store.UpsertOrder(ctx, &domain.Order{
		ID:           4521,
		Number:       "4521",
		Status:       "processing",
		Total:        42.5,
		BillingName:  "Jane Doe",
		BillingEmail: "jane@example.com",
		Items:        []domain.OrderItem{{Name: "Widget", Quantity: 1}},
		CreatedAt:    time.Now().Add(-48 * time.Hour),
	}))
	_, err = f.store.UpsertContent(ctx, &domain.ContentEntry{
		ContentID: "1", ContentType: "page", Title: "Order status help", Content: "Track any order from your account.",
	})
	require.NoError(t, err)

	// The fake model answers with the order section it was given.
	f.provider.reply = func(_ context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
		system := req.Messages[0].Content
		i := strings.Index(system, labelOrderInfo)
		if i < 0 {
			return &llm.Completion{Text: "no order info", Model: req.Model}, nil
		}
		return &llm.Completion{Text: system[i:], Model: req.Model, InputTokens: 10, OutputTokens: 10, TotalTokens: 20}, nil
	}

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{
		ChatbotID: f.bot.ID,
		Message:   "My name is Jane Doe, email jane@example.com, order #4521 status?",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Order #4521")
	assert.Contains(t, resp.Message, "Status: Processing")

	system := f.provider.lastRequest(t).Messages[0].Content
	assert.Contains(t, system, labelSiteContent+"\nOrder status help: Track any order from your account.")
	assert.Less(t, strings.Index(system, labelSiteContent), strings.Index(system, labelOrderInfo))

	contacts, err := f.store.ListContacts(ctx, domain.ContactFilter{})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Jane Doe", contacts[0].Name)
	assert.Equal(t, "jane@example.com", contacts[0].Email)
	assert.Empty(t, contacts[0].Phone)
	assert.Equal(t, resp.SessionID, contacts[0].SessionID)
}

func TestProcessMessageOrderRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Commerce.Enabled = true })
	engine, err := policy.NewEngine(ctx, policy.DefaultOrderPolicy)
	require.NoError(t, err)
	f.svc.orders = commerce.NewLookup(f.store, engine, commerce.Config{RequireEmail: true, MaxDaysBack: 365})
	require.NoError(t, f.store.UpsertOrder(ctx, &domain.Order{
		ID: 7777, Status: "completed", BillingEmail: "owner@example.com", CreatedAt: time.Now().Add(-time.Hour),
	}))

	cases := []struct {
		message string
		want    string
	}{
		{"where is my order 9999?", commerce.MsgNotFound},
		{"order 7777 status, I am intruder@example.com", commerce.MsgEmailMismatch},
	}
	for _, tc := range cases {
		_, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: tc.message})
		require.NoError(t, err)
		system := f.provider.lastRequest(t).Messages[0].Content
		assert.Contains(t, system, labelOrderInfo+"\n"+tc.want, tc.message)
	}
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) ContactCaptured(context.Context, domain.Contact) error {
	n.calls++
	panic("notifier exploded")
}

func TestContactCaptureNeverFailsTurn(t *testing.T) {
	ctx := context.Background()
	notifier := &failingNotifier{}
	f := newFixture(t, nil, WithNotifier(notifier))

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "reach me at bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", resp.Message)
	assert.Equal(t, 1, notifier.calls)

	logs, err := f.store.ListDebugLogs(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, componentContact, logs[0].Component)
}

func TestContactCaptureDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(cfg *config.Config) { cfg.Contacts.CaptureEnabled = false })

	_, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "my email is bob@example.com"})
	require.NoError(t, err)
	contacts, err := f.store.ListContacts(ctx, domain.ContactFilter{})
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestBuildPromptSkipsEmptyResponses(t *testing.T) {
	bot := &domain.Chatbot{SystemPrompt: "sys"}
	history := []domain.Message{
		{Role: domain.MessageRoleUser, Content: "q1"},
		{Role: domain.MessageRoleAssistant, Content: "q1", Response: "a1"},
		{Role: domain.MessageRoleSystem, Content: "ignored"},
	}
	got := buildPrompt(bot, []string{"A:\nx", "B:\ny"}, history, "q2")
	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "sys\n\nA:\nx\n\nB:\ny"},
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
	}, got)
}

func TestNewSessionToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := newSessionToken()
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
