package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedChatbot stores a chatbot with test defaults; fields set on bot win.
func SeedChatbot(t *testing.T, s repository.Store, bot domain.Chatbot) *domain.Chatbot {
	t.Helper()

	base := domain.DefaultChatbot()
	if bot.Name == "" {
		bot.Name = base.Name
	}
	if bot.Slug == "" {
		bot.Slug = base.Slug
	}
	if bot.Model == "" {
		bot.Model = base.Model
	}
	if bot.Provider == "" {
		bot.Provider = base.Provider
	}
	if bot.MaxTokens == 0 {
		bot.MaxTokens = base.MaxTokens
	}
	if bot.MaxMemory == 0 {
		bot.MaxMemory = base.MaxMemory
	}
	if bot.Temperature == 0 {
		bot.Temperature = base.Temperature
	}

	if err := s.UpsertChatbot(context.Background(), &bot); err != nil {
		t.Fatalf("failed to seed chatbot: %v", err)
	}
	return &bot
}
