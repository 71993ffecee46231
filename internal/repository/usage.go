package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const (
	usageColumns = `usage_id, session_id, chatbot_id, provider, model, input_tokens, output_tokens, total_tokens, cost, currency, request_type, latency_ms, success, error, date, created_at`

	defaultTopSessions = 10
	dateLayout         = "2006-01-02"
)

// RecordUsage stores a usage record. When the record belongs to a session the
// session's token and cost totals are incremented in the same transaction.
func (s *SQLiteStore) RecordUsage(ctx context.Context, rec *domain.UsageRecord) error {
	if rec.UsageID == "" {
		rec.UsageID = uuid.NewString()
	}
	rec.CreatedAt = utc(rec.CreatedAt)
	if rec.Date == "" {
		rec.Date = rec.CreatedAt.Format(dateLayout)
	}
	if rec.Currency == "" {
		rec.Currency = "USD"
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage (`+usageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.UsageID, nullString(rec.SessionID), rec.ChatbotID, rec.Provider, rec.Model,
			rec.InputTokens, rec.OutputTokens, rec.TotalTokens, rec.Cost, rec.Currency,
			rec.RequestType, rec.LatencyMs, rec.Success, nullString(rec.Error), rec.Date, rec.CreatedAt); err != nil {
			return err
		}
		if rec.SessionID == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET total_tokens = total_tokens + ?, total_cost = total_cost + ? WHERE session_id = ?`,
			rec.TotalTokens, rec.Cost, rec.SessionID)
		return err
	})
}

// ListUsage returns the usage records of a session in insertion order.
func (s *SQLiteStore) ListUsage(ctx context.Context, sessionID string) ([]domain.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+usageColumns+` FROM usage WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		var sessionID, errText sql.NullString
		if err := rows.Scan(&rec.UsageID, &sessionID, &rec.ChatbotID, &rec.Provider, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &rec.TotalTokens, &rec.Cost, &rec.Currency,
			&rec.RequestType, &rec.LatencyMs, &rec.Success, &errText, &rec.Date, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.SessionID = sessionID.String
		rec.Error = errText.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UsageStats aggregates sessions, messages and provider calls over the filter range.
func (s *SQLiteStore) UsageStats(ctx context.Context, f domain.UsageFilter) (*domain.UsageStats, error) {
	stats := &domain.UsageStats{}

	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&stats.Sessions); err != nil {
		return nil, err
	}

	msgWhere, msgArgs := andClause(where, args, "role = ?", domain.MessageRoleUser)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`+msgWhere, msgArgs...).Scan(&stats.Messages); err != nil {
		return nil, err
	}

	var avgLatencyMs float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(total_tokens), 0),
			COALESCE(SUM(cost), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM usage`+where, args...,
	).Scan(&stats.Requests, &stats.FailedRequests, &stats.TotalTokens, &stats.TotalCost, &avgLatencyMs)
	if err != nil {
		return nil, err
	}

	stats.AvgResponseTime = avgLatencyMs / 1000
	if stats.Requests > 0 {
		stats.SuccessRate = float64(stats.Requests-stats.FailedRequests) / float64(stats.Requests) * 100
	}
	return stats, nil
}

// DailyUsage buckets provider calls by calendar day, oldest first.
func (s *SQLiteStore) DailyUsage(ctx context.Context, f domain.UsageFilter) ([]domain.DailyUsage, error) {
	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost), 0)
		FROM usage`+where+` GROUP BY date ORDER BY date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []domain.DailyUsage
	for rows.Next() {
		var d domain.DailyUsage
		if err := rows.Scan(&d.Date, &d.Requests, &d.Tokens, &d.Cost); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// UsageByModel groups provider calls by provider and model, heaviest first.
func (s *SQLiteStore) UsageByModel(ctx context.Context, f domain.UsageFilter) ([]domain.ModelUsage, error) {
	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, model, COUNT(*),
			COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost), 0)
		FROM usage`+where+`
		GROUP BY provider, model
		ORDER BY SUM(total_tokens) DESC, provider, model`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []domain.ModelUsage
	for rows.Next() {
		var m domain.ModelUsage
		if err := rows.Scan(&m.Provider, &m.Model, &m.Requests, &m.InputTokens, &m.OutputTokens, &m.TotalTokens, &m.Cost); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// TopSessions returns the most expensive sessions in the range.
func (s *SQLiteStore) TopSessions(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultTopSessions
	}
	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	args = append(args, limit)
	return s.sessionUsage(ctx,
		`SELECT session_id, chatbot_id, status, total_messages, total_tokens, total_cost, created_at, last_activity
		FROM sessions`+where+` ORDER BY total_cost DESC, total_tokens DESC, created_at LIMIT ?`, args...)
}

// ExportUsage returns every session in the range, oldest first.
func (s *SQLiteStore) ExportUsage(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error) {
	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	query := `SELECT session_id, chatbot_id, status, total_messages, total_tokens, total_cost, created_at, last_activity
		FROM sessions` + where + ` ORDER BY created_at, session_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.sessionUsage(ctx, query, args...)
}

func (s *SQLiteStore) sessionUsage(ctx context.Context, query string, args ...interface{}) ([]domain.SessionUsage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.SessionUsage
	for rows.Next() {
		var su domain.SessionUsage
		if err := rows.Scan(&su.SessionID, &su.ChatbotID, &su.Status, &su.Messages, &su.Tokens, &su.Cost,
			&su.CreatedAt, &su.LastActivity); err != nil {
			return nil, err
		}
		sessions = append(sessions, su)
	}
	return sessions, rows.Err()
}

// andClause extends a WHERE clause built by rangeClause with one more condition.
func andClause(where string, args []interface{}, cond string, arg interface{}) (string, []interface{}) {
	out := append(append([]interface{}{}, args...), arg)
	if where == "" {
		return " WHERE " + cond, out
	}
	return where + " AND " + cond, out
}
