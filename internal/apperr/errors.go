// Package apperr defines the error taxonomy shared by the engine and its transports.
package apperr

import (
	"errors"
	"fmt"
)

// GenericMessage is the only text a client sees for provider and persistence failures.
const GenericMessage = "Sorry, I'm having trouble responding right now. Please try again."

// ConfigError reports missing credentials or an unsupported provider.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error [%s]: %s", e.Provider, e.Message)
}

// ProviderError reports a network, HTTP or decoding failure from a backend.
// HTTPStatus is zero when no response was received.
type ProviderError struct {
	Provider   string
	HTTPStatus int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("provider error [%s]: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("provider error [%s] [%d]: %s", e.Provider, e.HTTPStatus, e.Message)
}

// NotFoundError reports an absent chatbot, session, contact or order.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError reports malformed input. It is raised before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFound is a shorthand constructor.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// Invalid is a shorthand constructor.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// UserMessage returns the client-safe text for err.
func UserMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		switch nf.Resource {
		case "chatbot":
			return "Chatbot not found."
		case "session":
			return "Session not found."
		case "contact":
			return "Contact not found."
		case "order":
			return "Order not found."
		}
		return "Not found."
	}
	return GenericMessage
}
