// Package files validates chat uploads, stores them on disk and extracts
// their text.
package files

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// DefaultMaxSize applies when Config.MaxSize is not positive.
const DefaultMaxSize int64 = 10 << 20

// DefaultAllowedTypes are the extensions accepted when none are configured.
var DefaultAllowedTypes = []string{"pdf", "docx", "txt", "jpg", "jpeg", "png"}

// mimeByType maps an allowed extension to the content type its bytes must sniff as.
var mimeByType = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// Config configures a Store. RetentionDays of zero keeps uploads until their
// session is purged.
type Config struct {
	Dir           string
	AllowedTypes  []string
	MaxSize       int64
	RetentionDays int
}

// Store keeps uploads under a single directory.
type Store struct {
	dir       string
	allowed   map[string]bool
	maxSize   int64
	retention time.Duration
	now       func() time.Time
}

// New creates the upload directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("files: directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("files: create %s: %w", cfg.Dir, err)
	}
	types := cfg.AllowedTypes
	if len(types) == 0 {
		types = DefaultAllowedTypes
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	return &Store{
		dir:       cfg.Dir,
		allowed:   allowed,
		maxSize:   cfg.MaxSize,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		now:       time.Now,
	}, nil
}

// MaxSize is the largest accepted upload in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

// Validate checks size, extension and sniffed content type. It returns the
// lowercased extension and the detected MIME type.
func (s *Store) Validate(name string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", apperr.Invalid("file", "No file was uploaded.")
	}
	if int64(len(data)) > s.maxSize {
		return "", "", apperr.Invalid("file", fmt.Sprintf("File size exceeds %s limit.", formatSize(s.maxSize)))
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !s.allowed[ext] {
		return "", "", apperr.Invalid("file", fmt.Sprintf("File type %q is not allowed.", ext))
	}
	want, known := mimeByType[ext]
	if !known || !sniffsAs(mimetype.Detect(data), want) {
		return "", "", apperr.Invalid("file", "Invalid file type detected.")
	}
	return ext, want, nil
}

// sniffsAs accepts a detected subtype of want, e.g. HTML saved as .txt.
func sniffsAs(m *mimetype.MIME, want string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

// Save validates data and writes it as <session>_<uuid>.<ext>. The returned
// file carries its hash, extracted text and expiry; it is not yet recorded
// anywhere else.
func (s *Store) Save(sessionID string, chatbotID int64, name string, data []byte) (*domain.File, error) {
	ext, mime, err := s.Validate(name, data)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	stored := fmt.Sprintf("%s_%s.%s", sessionID, id, ext)
	path := filepath.Join(s.dir, stored)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return nil, fmt.Errorf("files: write %s: %w", stored, err)
	}

	sum := sha256.Sum256(data)
	text, extractErr := ExtractText(mime, data)
	now := s.now().UTC()
	f := &domain.File{
		FileID:        id,
		SessionID:     sessionID,
		ChatbotID:     chatbotID,
		OriginalName:  filepath.Base(name),
		StoredName:    stored,
		Path:          path,
		Size:          int64(len(data)),
		FileType:      ext,
		MIMEType:      mime,
		Hash:          hex.EncodeToString(sum[:]),
		Processed:     extractErr == nil && text != "",
		ExtractedText: text,
		UploadedAt:    now,
	}
	if s.retention > 0 {
		expires := now.Add(s.retention)
		f.ExpiresAt = &expires
	}
	return f, nil
}

// Remove deletes a stored upload. A file that is already gone is not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
