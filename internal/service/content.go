package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// UpsertContent indexes one entry for the external indexer. Cached search
// results are dropped when the entry changed.
func (s *Service) UpsertContent(ctx context.Context, entry *domain.ContentEntry) (bool, error) {
	entry.ContentID = strings.TrimSpace(entry.ContentID)
	entry.ContentType = strings.TrimSpace(entry.ContentType)
	switch {
	case entry.ContentID == "":
		return false, apperr.Invalid("content_id", "content_id is required")
	case entry.ContentType == "":
		return false, apperr.Invalid("content_type", "content_type is required")
	case strings.TrimSpace(entry.Title) == "":
		return false, apperr.Invalid("title", "title is required")
	}

	entry.IndexedAt = s.now()
	changed, err := s.store.UpsertContent(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("failed to index content: %w", err)
	}
	if changed && s.invalidator != nil {
		s.bestEffort(ctx, "content_indexer", map[string]any{"content_id": entry.ContentID}, s.invalidator.Invalidate)
	}
	return changed, nil
}

func (s *Service) ContentStats(ctx context.Context) (*domain.ContentStats, error) {
	stats, err := s.store.ContentStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get content stats: %w", err)
	}
	return stats, nil
}

// UpsertOrder mirrors one order from the commerce backend.
func (s *Service) UpsertOrder(ctx context.Context, order *domain.Order) error {
	if order.ID <= 0 {
		return apperr.Invalid("id", "id must be positive")
	}
	if strings.TrimSpace(order.Status) == "" {
		return apperr.Invalid("status", "status is required")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	if err := s.store.UpsertOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}
