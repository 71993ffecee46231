package domain

import "time"

// ContactInfo is the result of contact extraction. Empty fields were not found.
type ContactInfo struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// Empty reports whether nothing was extracted.
func (c ContactInfo) Empty() bool {
	return c.Name == "" && c.Email == "" && c.Phone == "" && c.Company == ""
}

// Contact is a persisted contact record.
type Contact struct {
	ContactID string        `json:"contact_id"`
	SessionID string        `json:"session_id"`
	ChatbotID int64         `json:"chatbot_id"`
	Name      string        `json:"name,omitempty"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Company   string        `json:"company,omitempty"`
	Message   string        `json:"message,omitempty"`
	Source    ContactSource `json:"source"`
	Status    ContactStatus `json:"status"`
	Client    ClientInfo    `json:"client"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ContactFilter narrows contact listings. Zero values mean no filter.
type ContactFilter struct {
	ChatbotID int64
	Status    ContactStatus
	From      time.Time
	To        time.Time
	Limit     int
}
