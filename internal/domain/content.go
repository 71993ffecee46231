package domain

import "time"

// ContentEntry is one indexed piece of site content.
type ContentEntry struct {
	ContentID   string         `json:"content_id"`
	ContentType string         `json:"content_type"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	ContentHash string         `json:"content_hash,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IndexedAt   time.Time      `json:"indexed_at"`
}

// ContentStats describes the state of the content index.
type ContentStats struct {
	Entries       int            `json:"entries"`
	ByType        map[string]int `json:"by_type"`
	LastIndexedAt *time.Time     `json:"last_indexed_at,omitempty"`
}
