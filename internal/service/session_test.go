package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/llm"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

func TestCloseSessionTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hello"})
	require.NoError(t, err)

	_, err = f.svc.CloseSession(ctx, resp.SessionID, domain.SessionStatusActive)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	session, err := f.svc.CloseSession(ctx, resp.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.EndedAt)

	// No regression once terminal.
	_, err = f.svc.CloseSession(ctx, resp.SessionID, domain.SessionStatusAbandoned)
	require.ErrorAs(t, err, &ve)
	session, err = f.svc.GetSession(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, session.Status)

	_, err = f.svc.CloseSession(ctx, "missing", domain.SessionStatusCompleted)
	assert.True(t, apperr.IsNotFound(err))
}

func TestGetSessionMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	resp, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hello"})
	require.NoError(t, err)

	messages, err := f.svc.GetSessionMessages(ctx, resp.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)

	messages, err = f.svc.GetSessionMessages(ctx, resp.SessionID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, domain.MessageRoleAssistant, messages[0].Role)

	_, err = f.svc.GetSessionMessages(ctx, "missing", 10)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSweepInactiveSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-2 * time.Hour)
	f := newFixture(t, func(cfg *config.Config) { cfg.Session.InactivityTimeout = 30 * time.Minute },
		WithClock(func() time.Time { return clock }))

	idle, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "old"})
	require.NoError(t, err)
	clock = now.Add(-10 * time.Minute)
	fresh, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "new"})
	require.NoError(t, err)

	clock = now
	f.svc.sweepInactiveSessions(ctx)

	got, err := f.svc.GetSession(ctx, idle.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusAbandoned, got.Status)
	got, err = f.svc.GetSession(ctx, fresh.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, got.Status)

	// A message to an abandoned session starts a new one.
	next, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: idle.SessionID, Message: "back"})
	require.NoError(t, err)
	assert.NotEqual(t, idle.SessionID, next.SessionID)
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now.AddDate(0, 0, -100)
	f := newFixture(t, nil, WithClock(func() time.Time { return clock }))

	old, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "ancient"})
	require.NoError(t, err)
	_, err = f.svc.CloseSession(ctx, old.SessionID, domain.SessionStatusCompleted)
	require.NoError(t, err)

	clock = now.AddDate(0, 0, -1)
	recent, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "recent"})
	require.NoError(t, err)
	_, err = f.svc.CloseSession(ctx, recent.SessionID, domain.SessionStatusCompleted)
	require.NoError(t, err)

	clock = now
	result, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Sessions)

	_, err = f.svc.GetSession(ctx, old.SessionID)
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.svc.GetSession(ctx, recent.SessionID)
	assert.NoError(t, err)
}

func TestRunSessionMonitorStopsOnCancel(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Session.SweepInterval = 10 * time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunSessionMonitor(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestFailedTurnKeepsSessionActive(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	f := newFixture(t, func(cfg *config.Config) { cfg.Session.InactivityTimeout = time.Hour },
		WithClock(func() time.Time { return clock }))

	first, err := f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, Message: "hello"})
	require.NoError(t, err)

	clock = start.Add(50 * time.Minute)
	f.provider.reply = func(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
		return nil, &apperr.ProviderError{Provider: llm.ProviderOpenAI, HTTPStatus: 500, Message: "boom"}
	}
	_, err = f.svc.ProcessMessage(ctx, domain.ChatRequest{ChatbotID: f.bot.ID, SessionID: first.SessionID, Message: "still there?"})
	require.Error(t, err)

	got, err := f.svc.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(clock), "last_activity %v", got.LastActivity)

	clock = start.Add(70 * time.Minute)
	f.svc.sweepInactiveSessions(ctx)
	got, err = f.svc.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusActive, got.Status)
}
