package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

func validateRange(f domain.UsageFilter) error {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return apperr.Invalid("to", "to must be after from")
	}
	return nil
}

func (s *Service) UsageStats(ctx context.Context, f domain.UsageFilter) (*domain.UsageStats, error) {
	if err := validateRange(f); err != nil {
		return nil, err
	}
	stats, err := s.store.UsageStats(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}
	return stats, nil
}

func (s *Service) DailyUsage(ctx context.Context, f domain.UsageFilter) ([]domain.DailyUsage, error) {
	if err := validateRange(f); err != nil {
		return nil, err
	}
	days, err := s.store.DailyUsage(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}
	return days, nil
}

func (s *Service) UsageByModel(ctx context.Context, f domain.UsageFilter) ([]domain.ModelUsage, error) {
	if err := validateRange(f); err != nil {
		return nil, err
	}
	models, err := s.store.UsageByModel(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to get model usage: %w", err)
	}
	return models, nil
}

func (s *Service) TopSessions(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error) {
	if err := validateRange(f); err != nil {
		return nil, err
	}
	sessions, err := s.store.TopSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to get top sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) ExportUsage(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error) {
	if err := validateRange(f); err != nil {
		return nil, err
	}
	rows, err := s.store.ExportUsage(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to export usage: %w", err)
	}
	return rows, nil
}
