// Package repository defines the storage contract of the chatbot engine and
// its SQLite implementation.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// Store defines the interface for data persistence. Every write is durable
// before the call returns.
type Store interface {
	// Chatbot operations
	UpsertChatbot(ctx context.Context, bot *domain.Chatbot) error
	GetChatbot(ctx context.Context, id int64) (*domain.Chatbot, error)
	GetChatbotBySlug(ctx context.Context, slug string) (*domain.Chatbot, error)
	ListChatbots(ctx context.Context) ([]domain.Chatbot, error)

	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateSessionActivity(ctx context.Context, sessionID string, at time.Time) error
	CloseSession(ctx context.Context, sessionID string, status domain.SessionStatus, at time.Time) (bool, error)
	ExpireInactiveSessions(ctx context.Context, idleBefore, at time.Time) (int64, error)

	// Message operations
	AppendMessage(ctx context.Context, msg *domain.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Usage operations
	RecordUsage(ctx context.Context, rec *domain.UsageRecord) error
	ListUsage(ctx context.Context, sessionID string) ([]domain.UsageRecord, error)
	UsageStats(ctx context.Context, f domain.UsageFilter) (*domain.UsageStats, error)
	DailyUsage(ctx context.Context, f domain.UsageFilter) ([]domain.DailyUsage, error)
	UsageByModel(ctx context.Context, f domain.UsageFilter) ([]domain.ModelUsage, error)
	TopSessions(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error)
	ExportUsage(ctx context.Context, f domain.UsageFilter) ([]domain.SessionUsage, error)

	// Contact operations
	SaveContact(ctx context.Context, c *domain.Contact) error
	GetContact(ctx context.Context, contactID string) (*domain.Contact, error)
	ListContacts(ctx context.Context, f domain.ContactFilter) ([]domain.Contact, error)
	UpdateContactStatus(ctx context.Context, contactID string, status domain.ContactStatus, at time.Time) (bool, error)

	// File operations
	SaveFile(ctx context.Context, f *domain.File) error
	GetFile(ctx context.Context, fileID string) (*domain.File, error)
	ListSessionFiles(ctx context.Context, sessionID string) ([]domain.File, error)

	// Content index operations
	UpsertContent(ctx context.Context, entry *domain.ContentEntry) (bool, error)
	SearchContent(ctx context.Context, term string, limit int) ([]domain.ContentEntry, error)
	ContentStats(ctx context.Context) (*domain.ContentStats, error)

	// Order mirror operations
	UpsertOrder(ctx context.Context, order *domain.Order) error
	OrderByID(ctx context.Context, id int64) (*domain.Order, error)
	OrderByNumber(ctx context.Context, number string) (*domain.Order, error)

	// Maintenance
	LogDebug(ctx context.Context, level domain.DebugLevel, component, message string, fields map[string]any) error
	ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error)
	Purge(ctx context.Context, cutoffs PurgeCutoffs) (*PurgeResult, error)

	// Lifecycle
	Close() error
}

// PurgeCutoffs selects what retention cleanup deletes.
type PurgeCutoffs struct {
	// Sessions that ended before this instant.
	EndedBefore time.Time
	// Abandoned sessions whose last activity is before this instant.
	AbandonedBefore time.Time
	// Debug log entries created before this instant.
	DebugBefore time.Time
	// Uploads whose expiry is before this instant. Uploads of purged
	// sessions are always removed.
	FilesExpiredBefore time.Time
}

// PurgeResult counts deleted rows. FilePaths lists the stored uploads whose
// rows were deleted so the caller can remove them from disk.
type PurgeResult struct {
	Sessions  int64    `json:"sessions"`
	DebugLogs int64    `json:"debug_logs"`
	Files     int64    `json:"files"`
	FilePaths []string `json:"-"`
}
