package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// UpsertContent indexes a content entry keyed by (content_id, content_type).
// It reports whether anything changed; an entry whose hash matches the stored
// one is left untouched.
func (s *SQLiteStore) UpsertContent(ctx context.Context, entry *domain.ContentEntry) (bool, error) {
	entry.ContentHash = ContentHash(entry.Title, entry.Content)
	entry.IndexedAt = utc(entry.IndexedAt)

	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	changed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT content_hash FROM content_index WHERE content_id = ? AND content_type = ?`,
			entry.ContentID, entry.ContentType).Scan(&current)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil && current == entry.ContentHash {
			return nil
		}
		changed = true
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_index (content_id, content_type, title, content, content_hash, metadata, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(content_id, content_type) DO UPDATE SET
				title = excluded.title, content = excluded.content, content_hash = excluded.content_hash,
				metadata = excluded.metadata, indexed_at = excluded.indexed_at`,
			entry.ContentID, entry.ContentType, entry.Title, entry.Content, entry.ContentHash, metadata, entry.IndexedAt)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// SearchContent returns entries whose title or body contains term,
// case-insensitively. Title matches come first, then shorter bodies; the
// ordering is applied before limit.
func (s *SQLiteStore) SearchContent(ctx context.Context, term string, limit int) ([]domain.ContentEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_id, content_type, title, content, content_hash, metadata, indexed_at
		FROM content_index
		WHERE lower(title) LIKE ? ESCAPE '\' OR lower(content) LIKE ? ESCAPE '\'
		ORDER BY CASE WHEN lower(title) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, length(content), content_id
		LIMIT ?`, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ContentEntry
	for rows.Next() {
		var e domain.ContentEntry
		var metadata sql.NullString
		if err := rows.Scan(&e.ContentID, &e.ContentType, &e.Title, &e.Content, &e.ContentHash, &metadata, &e.IndexedAt); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ContentStats counts indexed entries per content type.
func (s *SQLiteStore) ContentStats(ctx context.Context) (*domain.ContentStats, error) {
	stats := &domain.ContentStats{ByType: map[string]int{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content_type, COUNT(*) FROM content_index GROUP BY content_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var contentType string
		var n int
		if err := rows.Scan(&contentType, &n); err != nil {
			return nil, err
		}
		stats.ByType[contentType] = n
		stats.Entries += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT indexed_at FROM content_index ORDER BY indexed_at DESC LIMIT 1`).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	stats.LastIndexedAt = timePtr(last)
	return stats, nil
}

// ContentHash fingerprints the searchable part of a content entry.
func ContentHash(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
