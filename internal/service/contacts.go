package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/chatbot/internal/adapter/mail"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/config"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/logger"
)

// LogNotifier reports captured contacts through the structured log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// ContactCaptured logs the contact. Personal fields are redacted by the logger.
func (n *LogNotifier) ContactCaptured(_ context.Context, c domain.Contact) error {
	n.log.Info("new contact captured",
		"contact_id", c.ContactID,
		"chatbot_id", c.ChatbotID,
		"session_id", c.SessionID,
		"email", c.Email,
		"phone", c.Phone,
		"source", c.Source)
	return nil
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// EmailNotifier mails each captured contact to the site administrator.
type EmailNotifier struct {
	mailer Mailer
	cfg    config.EmailConfig
}

func NewEmailNotifier(m Mailer, cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{mailer: m, cfg: cfg}
}

func (n *EmailNotifier) ContactCaptured(ctx context.Context, c domain.Contact) error {
	if n.cfg.AdminEmail == "" {
		return fmt.Errorf("email notifier: admin email not configured")
	}
	return n.mailer.Send(ctx, mail.Message{
		From:    mail.Address{Email: n.cfg.FromEmail, Name: n.cfg.FromName},
		To:      []mail.Address{{Email: n.cfg.AdminEmail}},
		Subject: fmt.Sprintf("[%s] New Contact from ChatBot", n.cfg.SiteName),
		Text:    contactEmailBody(c, n.cfg.AdminURL),
	})
}

func contactEmailBody(c domain.Contact, adminURL string) string {
	var b strings.Builder
	b.WriteString("New contact information captured from chatbot:\n\n")
	for _, f := range []struct{ label, value string }{
		{"Name", c.Name},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Company", c.Company},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
	}
	fmt.Fprintf(&b, "\nSession ID: %s\n", c.SessionID)
	if adminURL != "" {
		fmt.Fprintf(&b, "View in admin: %s", adminURL)
	}
	return b.String()
}

func (s *Service) ListContacts(ctx context.Context, f domain.ContactFilter) ([]domain.Contact, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown contact status %q", f.Status))
	}
	contacts, err := s.store.ListContacts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, nil
}

func (s *Service) UpdateContactStatus(ctx context.Context, contactID string, status domain.ContactStatus) (*domain.Contact, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown contact status %q", status))
	}
	updated, err := s.store.UpdateContactStatus(ctx, contactID, status, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	if !updated {
		return nil, apperr.NotFound("contact", contactID)
	}
	c, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if c == nil {
		return nil, apperr.NotFound("contact", contactID)
	}
	return c, nil
}
