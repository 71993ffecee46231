package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const defaultDebugLogs = 100

// LogDebug persists a diagnostic entry.
func (s *SQLiteStore) LogDebug(ctx context.Context, level domain.DebugLevel, component, message string, fields map[string]any) error {
	var data sql.NullString
	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal debug context: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debug_log (id, level, component, message, context, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), level, component, message, data, time.Now().UTC())
	return err
}

// ListDebugLogs returns the newest debug entries first.
func (s *SQLiteStore) ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error) {
	if limit <= 0 {
		limit = defaultDebugLogs
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, level, component, message, context, created_at FROM debug_log
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.DebugLog
	for rows.Next() {
		var entry domain.DebugLog
		var data sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Level, &entry.Component, &entry.Message, &data, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &entry.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal debug context: %w", err)
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Purge deletes expired data. Messages, usage, contacts and uploads of a
// deleted session go with it. Zero cutoffs are skipped.
func (s *SQLiteStore) Purge(ctx context.Context, cutoffs PurgeCutoffs) (*PurgeResult, error) {
	result := &PurgeResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		paths, err := purgeFiles(ctx, tx, cutoffs)
		if err != nil {
			return err
		}
		result.FilePaths = paths
		result.Files = int64(len(paths))

		if !cutoffs.EndedBefore.IsZero() {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM sessions WHERE status = ? AND ended_at IS NOT NULL AND ended_at < ?`,
				domain.SessionStatusCompleted, cutoffs.EndedBefore.UTC())
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			result.Sessions += n
		}
		if !cutoffs.AbandonedBefore.IsZero() {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM sessions WHERE status = ? AND last_activity < ?`,
				domain.SessionStatusAbandoned, cutoffs.AbandonedBefore.UTC())
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			result.Sessions += n
		}
		if !cutoffs.DebugBefore.IsZero() {
			res, err := tx.ExecContext(ctx,
				`DELETE FROM debug_log WHERE created_at < ?`, cutoffs.DebugBefore.UTC())
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			result.DebugLogs += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
