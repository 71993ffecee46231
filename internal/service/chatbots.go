package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// SeedChatbots stores the configured chatbots. When none are configured and
// the store is empty, the default chatbot is created.
func (s *Service) SeedChatbots(ctx context.Context) error {
	bots := s.config.Chatbots
	if len(bots) == 0 {
		existing, err := s.store.ListChatbots(ctx)
		if err != nil {
			return fmt.Errorf("failed to list chatbots: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}
		bots = []domain.Chatbot{domain.DefaultChatbot()}
	}

	defaults := domain.DefaultChatbot()
	for i := range bots {
		bot := bots[i]
		applyChatbotDefaults(&bot, defaults)
		if err := s.store.UpsertChatbot(ctx, &bot); err != nil {
			return fmt.Errorf("failed to seed chatbot %s: %w", bot.Slug, err)
		}
		s.log.Info("chatbot ready", "chatbot_id", bot.ID, "slug", bot.Slug, "provider", bot.Provider, "model", bot.Model)
	}
	return nil
}

func (s *Service) ListChatbots(ctx context.Context) ([]domain.Chatbot, error) {
	bots, err := s.store.ListChatbots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chatbots: %w", err)
	}
	return bots, nil
}

func applyChatbotDefaults(bot *domain.Chatbot, d domain.Chatbot) {
	if bot.Name == "" {
		bot.Name = bot.Slug
	}
	if bot.Model == "" {
		bot.Model = d.Model
	}
	if bot.Provider == "" {
		bot.Provider = d.Provider
	}
	if bot.SystemPrompt == "" {
		bot.SystemPrompt = d.SystemPrompt
	}
	if bot.Greeting == "" {
		bot.Greeting = d.Greeting
	}
	if bot.Temperature == 0 {
		bot.Temperature = d.Temperature
	}
	if bot.MaxTokens == 0 {
		bot.MaxTokens = d.MaxTokens
	}
	if bot.MaxMemory == 0 {
		bot.MaxMemory = d.MaxMemory
	}
	if bot.Status == "" {
		bot.Status = d.Status
	}
}
