package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	memory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	db, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if memory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// withPragmas makes every pooled connection enforce foreign keys and wait on locks.
func withPragmas(dsn string) string {
	params := url.Values{}
	base := dsn
	if i := strings.IndexRune(dsn, '?'); i >= 0 {
		base = dsn[:i]
		if parsed, err := url.ParseQuery(dsn[i+1:]); err == nil {
			params = parsed
		}
	}
	if params.Get("_foreign_keys") == "" && params.Get("_fk") == "" {
		params.Set("_foreign_keys", "on")
	}
	if params.Get("_busy_timeout") == "" && params.Get("_timeout") == "" {
		params.Set("_busy_timeout", "5000")
	}
	return base + "?" + params.Encode()
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chatbots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			system_prompt TEXT NOT NULL DEFAULT '',
			greeting TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL,
			provider TEXT NOT NULL,
			temperature REAL NOT NULL DEFAULT 0.7,
			max_tokens INTEGER NOT NULL DEFAULT 1000,
			max_memory INTEGER NOT NULL DEFAULT 10,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			chatbot_id INTEGER NOT NULL,
			ip TEXT,
			user_agent TEXT,
			referrer TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			total_messages INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			total_cost REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_activity DATETIME NOT NULL,
			ended_at DATETIME,
			FOREIGN KEY (chatbot_id) REFERENCES chatbots(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status_activity ON sessions(status, last_activity)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_chatbot_created ON sessions(chatbot_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			chatbot_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			response TEXT,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			cost REAL NOT NULL DEFAULT 0,
			model TEXT,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			attachments TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS usage (
			usage_id TEXT PRIMARY KEY,
			session_id TEXT,
			chatbot_id INTEGER NOT NULL DEFAULT 0,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			cost REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			request_type TEXT NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL,
			error TEXT,
			date TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_session ON usage(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_date ON usage(date, chatbot_id)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			contact_id TEXT PRIMARY KEY,
			session_id TEXT,
			chatbot_id INTEGER NOT NULL DEFAULT 0,
			name TEXT,
			email TEXT,
			phone TEXT,
			company TEXT,
			message TEXT,
			source TEXT NOT NULL DEFAULT 'chat',
			status TEXT NOT NULL DEFAULT 'new',
			ip TEXT,
			user_agent TEXT,
			referrer TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_chatbot_created ON contacts(chatbot_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS content_index (
			content_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			metadata TEXT,
			indexed_at DATETIME NOT NULL,
			PRIMARY KEY (content_id, content_type)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY,
			number TEXT,
			status TEXT NOT NULL,
			total REAL NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			billing_name TEXT,
			billing_email TEXT,
			items TEXT,
			shipping_method TEXT,
			shipping_method_id TEXT,
			tracking_number TEXT,
			delivery_date DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_number ON orders(number)`,
		`CREATE TABLE IF NOT EXISTS file_uploads (
			file_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			chatbot_id INTEGER NOT NULL,
			original_name TEXT NOT NULL,
			stored_name TEXT NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL,
			file_type TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			file_hash TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			extracted_text TEXT,
			expires_at DATETIME,
			uploaded_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_file_uploads_session ON file_uploads(session_id, uploaded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_file_uploads_expires ON file_uploads(expires_at)`,
		`CREATE TABLE IF NOT EXISTS debug_log (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			component TEXT NOT NULL,
			message TEXT NOT NULL,
			context TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_debug_log_created ON debug_log(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Columns added after the first release.
	if err := s.ensureColumn("messages", "attachments", "ALTER TABLE messages ADD COLUMN attachments TEXT"); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// utc normalizes times so DATETIME text compares chronologically.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// rangeClause appends created_at and chatbot filters to a WHERE clause.
func rangeClause(column string, chatbotColumn string, chatbotID int64, from, to time.Time) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if chatbotID > 0 && chatbotColumn != "" {
		conds = append(conds, chatbotColumn+" = ?")
		args = append(args, chatbotID)
	}
	if !from.IsZero() {
		conds = append(conds, column+" >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, column+" < ?")
		args = append(args, to.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
