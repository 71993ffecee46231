package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const fileColumns = `file_id, session_id, chatbot_id, original_name, stored_name, path, size, file_type, mime_type, file_hash, processed, extracted_text, expires_at, uploaded_at`

// SaveFile records an upload. The session must exist.
func (s *SQLiteStore) SaveFile(ctx context.Context, f *domain.File) error {
	f.UploadedAt = utc(f.UploadedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_uploads (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FileID, f.SessionID, f.ChatbotID, f.OriginalName, f.StoredName, f.Path, f.Size,
		f.FileType, f.MIMEType, f.Hash, f.Processed, nullString(f.ExtractedText), nullTime(f.ExpiresAt), f.UploadedAt)
	return err
}

// GetFile retrieves an upload by ID. It returns (nil, nil) when absent.
func (s *SQLiteStore) GetFile(ctx context.Context, fileID string) (*domain.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM file_uploads WHERE file_id = ?`, fileID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListSessionFiles returns the uploads of a session, newest first.
func (s *SQLiteStore) ListSessionFiles(ctx context.Context, sessionID string) ([]domain.File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM file_uploads WHERE session_id = ? ORDER BY uploaded_at DESC, rowid DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// purgeFiles deletes upload rows selected by cutoffs and returns their paths.
// It must run before the sessions themselves are deleted.
func purgeFiles(ctx context.Context, tx *sql.Tx, cutoffs PurgeCutoffs) ([]string, error) {
	var conds []string
	var args []interface{}
	if !cutoffs.FilesExpiredBefore.IsZero() {
		conds = append(conds, `(expires_at IS NOT NULL AND expires_at < ?)`)
		args = append(args, cutoffs.FilesExpiredBefore.UTC())
	}
	if !cutoffs.EndedBefore.IsZero() {
		conds = append(conds, `session_id IN (SELECT session_id FROM sessions WHERE status = ? AND ended_at IS NOT NULL AND ended_at < ?)`)
		args = append(args, domain.SessionStatusCompleted, cutoffs.EndedBefore.UTC())
	}
	if !cutoffs.AbandonedBefore.IsZero() {
		conds = append(conds, `session_id IN (SELECT session_id FROM sessions WHERE status = ? AND last_activity < ?)`)
		args = append(args, domain.SessionStatusAbandoned, cutoffs.AbandonedBefore.UTC())
	}
	if len(conds) == 0 {
		return nil, nil
	}
	where := strings.Join(conds, " OR ")

	rows, err := tx.QueryContext(ctx, `SELECT path FROM file_uploads WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, path)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_uploads WHERE `+where, args...); err != nil {
		return nil, err
	}
	return paths, nil
}

func scanFile(row rowScanner) (*domain.File, error) {
	var f domain.File
	var text sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&f.FileID, &f.SessionID, &f.ChatbotID, &f.OriginalName, &f.StoredName, &f.Path, &f.Size,
		&f.FileType, &f.MIMEType, &f.Hash, &f.Processed, &text, &expiresAt, &f.UploadedAt)
	if err != nil {
		return nil, err
	}
	f.ExtractedText = text.String
	f.ExpiresAt = timePtr(expiresAt)
	return &f, nil
}
