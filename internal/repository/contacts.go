package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const contactColumns = `contact_id, session_id, chatbot_id, name, email, phone, company, message, source, status, ip, user_agent, referrer, created_at, updated_at`

// SaveContact stores a captured contact.
func (s *SQLiteStore) SaveContact(ctx context.Context, c *domain.Contact) error {
	if c.ContactID == "" {
		c.ContactID = uuid.NewString()
	}
	c.CreatedAt = utc(c.CreatedAt)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Source == "" {
		c.Source = domain.ContactSourceChat
	}
	if c.Status == "" {
		c.Status = domain.ContactStatusNew
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ContactID, nullString(c.SessionID), c.ChatbotID,
		nullString(c.Name), nullString(c.Email), nullString(c.Phone), nullString(c.Company), nullString(c.Message),
		c.Source, c.Status,
		nullString(c.Client.IP), nullString(c.Client.UserAgent), nullString(c.Client.Referrer),
		c.CreatedAt, c.UpdatedAt.UTC())
	return err
}

// GetContact retrieves a contact by ID. It returns (nil, nil) when absent.
func (s *SQLiteStore) GetContact(ctx context.Context, contactID string) (*domain.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE contact_id = ?`, contactID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts lists contacts newest first.
func (s *SQLiteStore) ListContacts(ctx context.Context, f domain.ContactFilter) ([]domain.Contact, error) {
	where, args := rangeClause("created_at", "chatbot_id", f.ChatbotID, f.From, f.To)
	if f.Status != "" {
		where, args = andClause(where, args, "status = ?", f.Status)
	}
	query := `SELECT ` + contactColumns + ` FROM contacts` + where + ` ORDER BY created_at DESC, contact_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// UpdateContactStatus changes the follow-up status of a contact. It reports
// false when the contact does not exist.
func (s *SQLiteStore) UpdateContactStatus(ctx context.Context, contactID string, status domain.ContactStatus, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET status = ?, updated_at = ? WHERE contact_id = ?`,
		status, utc(at), contactID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	var sessionID, name, email, phone, company, message, ip, userAgent, referrer sql.NullString
	err := row.Scan(&c.ContactID, &sessionID, &c.ChatbotID, &name, &email, &phone, &company, &message,
		&c.Source, &c.Status, &ip, &userAgent, &referrer, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.SessionID = sessionID.String
	c.Name = name.String
	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.Message = message.String
	c.Client = domain.ClientInfo{IP: ip.String, UserAgent: userAgent.String, Referrer: referrer.String}
	return &c, nil
}
