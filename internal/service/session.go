package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/repository"
)

const defaultMessagePage = 50

// GetSession returns a session or a NotFoundError.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("session", sessionID)
	}
	return session, nil
}

// GetSessionMessages returns the newest limit turns of a session, oldest first.
func (s *Service) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	messages, err := s.store.GetHistory(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// CloseSession ends an active session. An empty status means completed.
// Terminal sessions never change again.
func (s *Service) CloseSession(ctx context.Context, sessionID string, status domain.SessionStatus) (*domain.Session, error) {
	if status == "" {
		status = domain.SessionStatusCompleted
	}
	if !status.Terminal() {
		return nil, apperr.Invalid("status", "status must be completed or abandoned")
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, apperr.Invalid("status", fmt.Sprintf("session is already %s", session.Status))
	}

	closed, err := s.store.CloseSession(ctx, sessionID, status, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	if !closed {
		// Lost a race with another close or the inactivity sweep.
		return nil, apperr.Invalid("status", "session is already closed")
	}
	s.metrics.SessionsClosed(string(status), 1)
	return s.GetSession(ctx, sessionID)
}

// RunSessionMonitor abandons idle sessions every sweep interval and applies
// retention once per purge interval, until ctx is done.
func (s *Service) RunSessionMonitor(ctx context.Context) {
	ticker := time.NewTicker(s.config.Session.SweepInterval)
	defer ticker.Stop()

	var lastPurge time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepInactiveSessions(ctx)
			if now := s.now(); now.Sub(lastPurge) >= s.config.Retention.PurgeInterval {
				lastPurge = now
				if _, err := s.PurgeExpired(ctx); err != nil {
					s.log.Warn("retention purge failed", "error", err)
				}
			}
		}
	}
}

func (s *Service) sweepInactiveSessions(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := s.now()
	n, err := s.store.ExpireInactiveSessions(sweepCtx, now.Add(-s.config.Session.InactivityTimeout), now)
	if err != nil {
		s.log.Warn("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.metrics.SessionsClosed(string(domain.SessionStatusAbandoned), int(n))
		s.log.Info("abandoned inactive sessions", "count", n)
	}
}

// PurgeExpired deletes data past its retention window.
func (s *Service) PurgeExpired(ctx context.Context) (*repository.PurgeResult, error) {
	now := s.now()
	r := s.config.Retention
	var cutoffs repository.PurgeCutoffs
	if r.SessionDays > 0 {
		cutoffs.EndedBefore = now.AddDate(0, 0, -r.SessionDays)
	}
	if r.AbandonedDays > 0 {
		cutoffs.AbandonedBefore = now.AddDate(0, 0, -r.AbandonedDays)
	}
	if r.DebugLogDays > 0 {
		cutoffs.DebugBefore = now.AddDate(0, 0, -r.DebugLogDays)
	}
	cutoffs.FilesExpiredBefore = now

	result, err := s.store.Purge(ctx, cutoffs)
	if err != nil {
		return nil, fmt.Errorf("failed to purge: %w", err)
	}
	if s.files != nil {
		for _, path := range result.FilePaths {
			if err := s.files.Remove(path); err != nil {
				s.log.Warn("failed to remove expired upload", "path", path, "error", err)
			}
		}
	}
	if result.Sessions > 0 || result.DebugLogs > 0 || result.Files > 0 {
		s.log.Info("retention purge", "sessions", result.Sessions, "debug_logs", result.DebugLogs, "files", result.Files)
	}
	return result, nil
}
