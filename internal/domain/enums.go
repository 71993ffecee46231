// Package domain defines the core domain models for the chatbot engine.
package domain

// ChatbotStatus represents the lifecycle status of a chatbot configuration.
type ChatbotStatus string

const (
	ChatbotStatusActive   ChatbotStatus = "active"
	ChatbotStatusInactive ChatbotStatus = "inactive"
)

// SessionStatus represents the status of a conversation session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further transition is allowed from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// MessageRole is the direction of a message turn.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// ContactStatus tracks follow-up on a captured contact.
type ContactStatus string

const (
	ContactStatusNew       ContactStatus = "new"
	ContactStatusContacted ContactStatus = "contacted"
	ContactStatusConverted ContactStatus = "converted"
	ContactStatusArchived  ContactStatus = "archived"
)

// Valid reports whether s is a known contact status.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusContacted, ContactStatusConverted, ContactStatusArchived:
		return true
	}
	return false
}

// ContactSource records how a contact was captured.
type ContactSource string

const (
	ContactSourceChat ContactSource = "chat"
	ContactSourceForm ContactSource = "form"
	ContactSourceAPI  ContactSource = "api"
)

// DebugLevel is the severity of a persisted debug log entry.
type DebugLevel string

const (
	DebugLevelInfo    DebugLevel = "info"
	DebugLevelWarning DebugLevel = "warning"
	DebugLevelError   DebugLevel = "error"
)

// RequestType classifies a usage record.
type RequestType string

const (
	RequestTypeChat           RequestType = "chat"
	RequestTypeConnectionTest RequestType = "connection_test"
)
