package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const messageColumns = `message_id, session_id, chatbot_id, role, content, response, input_tokens, output_tokens, total_tokens, cost, model, latency_ms, error, attachments, created_at`

// AppendMessage stores a message turn and increments the session's message
// counter in the same transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	msg.CreatedAt = utc(msg.CreatedAt)
	var attachments sql.NullString
	if len(msg.Attachments) > 0 {
		data, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("failed to marshal attachments: %w", err)
		}
		attachments = sql.NullString{String: string(data), Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.MessageID, msg.SessionID, msg.ChatbotID, msg.Role, msg.Content, nullString(msg.Response),
			msg.InputTokens, msg.OutputTokens, msg.TotalTokens, msg.Cost, nullString(msg.Model),
			msg.LatencyMs, nullString(msg.Error), attachments, msg.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE sessions SET total_messages = total_messages + 1 WHERE session_id = ?`, msg.SessionID)
		return err
	})
}

// GetHistory returns the newest limit messages of a session, oldest first.
// A non-positive limit returns the whole session.
func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	inner := `SELECT seq, ` + messageColumns + ` FROM messages WHERE session_id = ? ORDER BY seq DESC`
	args := []interface{}{sessionID}
	if limit > 0 {
		inner += ` LIMIT ?`
		args = append(args, limit)
	}
	query := `SELECT ` + messageColumns + ` FROM (` + inner + `) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var response, model, errText, attachments sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.ChatbotID, &msg.Role, &msg.Content, &response,
			&msg.InputTokens, &msg.OutputTokens, &msg.TotalTokens, &msg.Cost, &model,
			&msg.LatencyMs, &errText, &attachments, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Response = response.String
		msg.Model = model.String
		msg.Error = errText.String
		if attachments.Valid && attachments.String != "" {
			if err := json.Unmarshal([]byte(attachments.String), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
