package domain

import "time"

// File is an upload attached to a session. Path is server-side only.
type File struct {
	FileID        string     `json:"file_id"`
	SessionID     string     `json:"session_id"`
	ChatbotID     int64      `json:"chatbot_id"`
	OriginalName  string     `json:"original_name"`
	StoredName    string     `json:"stored_name"`
	Path          string     `json:"-"`
	Size          int64      `json:"size"`
	FileType      string     `json:"file_type"`
	MIMEType      string     `json:"mime_type"`
	Hash          string     `json:"file_hash"`
	Processed     bool       `json:"processed"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	UploadedAt    time.Time  `json:"uploaded_at"`
}
