package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const sessionColumns = `session_id, chatbot_id, ip, user_agent, referrer, status, total_messages, total_tokens, total_cost, created_at, last_activity, ended_at`

// CreateSession creates a new active session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	session.CreatedAt = utc(session.CreatedAt)
	if session.LastActivity.IsZero() {
		session.LastActivity = session.CreatedAt
	}
	if session.Status == "" {
		session.Status = domain.SessionStatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, chatbot_id, ip, user_agent, referrer, status, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.ChatbotID,
		nullString(session.Client.IP), nullString(session.Client.UserAgent), nullString(session.Client.Referrer),
		session.Status, session.CreatedAt, session.LastActivity.UTC())
	return err
}

// GetSession retrieves a session by ID. It returns (nil, nil) when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSessionActivity bumps last_activity of an active session.
func (s *SQLiteStore) UpdateSessionActivity(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE session_id = ? AND status = ?`,
		utc(at), sessionID, domain.SessionStatusActive)
	return err
}

// CloseSession moves an active session to a terminal status. It reports false
// when the session is missing or already terminal.
func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string, status domain.SessionStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE session_id = ? AND status = ?`,
		status, utc(at), sessionID, domain.SessionStatusActive)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpireInactiveSessions marks active sessions idle since before idleBefore as abandoned.
func (s *SQLiteStore) ExpireInactiveSessions(ctx context.Context, idleBefore, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ? WHERE status = ? AND last_activity < ?`,
		domain.SessionStatusAbandoned, utc(at), domain.SessionStatusActive, idleBefore.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var ip, userAgent, referrer sql.NullString
	var endedAt sql.NullTime
	err := row.Scan(&session.SessionID, &session.ChatbotID, &ip, &userAgent, &referrer, &session.Status,
		&session.TotalMessages, &session.TotalTokens, &session.TotalCost,
		&session.CreatedAt, &session.LastActivity, &endedAt)
	if err != nil {
		return nil, err
	}
	session.Client = domain.ClientInfo{IP: ip.String, UserAgent: userAgent.String, Referrer: referrer.String}
	session.EndedAt = timePtr(endedAt)
	return &session, nil
}
