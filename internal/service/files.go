package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/files"
)

// FileStore validates and writes uploads. It does not record them.
type FileStore interface {
	Save(sessionID string, chatbotID int64, name string, data []byte) (*domain.File, error)
	Remove(path string) error
	MaxSize() int64
}

// WithFileStore enables uploads.
func WithFileStore(fs FileStore) Option {
	return func(svc *Service) { svc.files = fs }
}

// MaxUploadSize is zero when uploads are disabled.
func (s *Service) MaxUploadSize() int64 {
	if s.files == nil {
		return 0
	}
	return s.files.MaxSize()
}

// UploadFile stores data for an active session and records it.
func (s *Service) UploadFile(ctx context.Context, sessionID, name string, data []byte) (*domain.File, error) {
	if s.files == nil {
		return nil, &apperr.ConfigError{Message: "file uploads are not enabled"}
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("session", sessionID)
	}
	if session.Status != domain.SessionStatusActive {
		return nil, apperr.Invalid("session_id", "session is no longer active")
	}

	f, err := s.files.Save(session.SessionID, session.ChatbotID, name, data)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveFile(ctx, f); err != nil {
		if rmErr := s.files.Remove(f.Path); rmErr != nil {
			s.log.Warn("failed to remove orphaned upload", "path", f.Path, "error", rmErr)
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	s.log.Info("file uploaded",
		"file_id", f.FileID, "session_id", f.SessionID, "type", f.FileType, "size", f.Size, "processed", f.Processed)
	return f, nil
}

// GetSessionFiles lists a session's uploads, newest first.
func (s *Service) GetSessionFiles(ctx context.Context, sessionID string) ([]domain.File, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperr.NotFound("session", sessionID)
	}
	out, err := s.store.ListSessionFiles(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return out, nil
}

// resolveAttachments keeps the referenced uploads that belong to sessionID.
// Unknown IDs are dropped.
func (s *Service) resolveAttachments(ctx context.Context, sessionID string, ids []string) []domain.File {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	var out []domain.File
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		f, err := s.store.GetFile(ctx, id)
		if err != nil {
			s.log.Warn("failed to load attachment", "file_id", id, "error", err)
			continue
		}
		if f == nil || f.SessionID != sessionID {
			s.log.Warn("ignoring unknown attachment", "file_id", id, "session_id", sessionID)
			continue
		}
		out = append(out, *f)
	}
	return out
}

func attachmentSection(attached []domain.File, maxChars int) string {
	if len(attached) == 0 {
		return ""
	}
	lines := make([]string, 0, len(attached))
	for _, f := range attached {
		body := f.ExtractedText
		switch {
		case body == files.ImageMarker:
			body = "[image attached]"
		case body == "":
			body = "[no text extracted]"
		case maxChars > 0 && utf8.RuneCountInString(body) > maxChars:
			body = string([]rune(body)[:maxChars])
		}
		lines = append(lines, f.OriginalName+": "+body)
	}
	return labelAttachments + "\n" + strings.Join(lines, "\n")
}
