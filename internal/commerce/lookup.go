// Package commerce answers order-status questions from the order mirror.
package commerce

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/policy"
)

// Messages returned instead of order data.
const (
	MsgNotFound      = "Order not found."
	MsgEmailMismatch = "Order not found or email does not match."
	MsgTooOld        = "Order is too old to display information."
)

// OrderSource resolves orders. Both methods return (nil, nil) when nothing matches.
type OrderSource interface {
	OrderByID(ctx context.Context, id int64) (*domain.Order, error)
	OrderByNumber(ctx context.Context, number string) (*domain.Order, error)
}

// Policy decides whether an order may be disclosed.
type Policy interface {
	Evaluate(ctx context.Context, input policy.OrderInput) (string, error)
}

// Config controls order disclosure and formatting.
type Config struct {
	RequireEmail bool
	MaxDaysBack  int
	Template     string
}

// Lookup resolves and formats orders.
type Lookup struct {
	orders OrderSource
	policy Policy
	cfg    Config
	now    func() time.Time
}

// NewLookup creates an order lookup.
func NewLookup(orders OrderSource, p Policy, cfg Config) *Lookup {
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	return &Lookup{orders: orders, policy: p, cfg: cfg, now: time.Now}
}

// LookupOrder returns the formatted order, or a refusal message when policy
// forbids disclosure. A missing order yields a NotFoundError.
func (l *Lookup) LookupOrder(ctx context.Context, orderNumber, email string) (string, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return "", apperr.Invalid("order_number", "must not be empty")
	}

	order, err := l.resolve(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", apperr.NotFound("order", orderNumber)
	}

	email = strings.TrimSpace(email)
	decision, err := l.policy.Evaluate(ctx, policy.OrderInput{
		RequireEmail:  l.cfg.RequireEmail,
		EmailSupplied: email != "",
		EmailMatches:  strings.EqualFold(email, order.BillingEmail),
		AgeDays:       l.now().Sub(order.CreatedAt).Hours() / 24,
		MaxAgeDays:    l.cfg.MaxDaysBack,
	})
	if err != nil {
		return "", fmt.Errorf("failed to evaluate order policy: %w", err)
	}

	switch decision {
	case policy.DecisionAllow:
		return Format(l.cfg.Template, order), nil
	case policy.DecisionEmailMismatch:
		return MsgEmailMismatch, nil
	case policy.DecisionTooOld:
		return MsgTooOld, nil
	default:
		return "", fmt.Errorf("unknown order policy decision %q", decision)
	}
}

func (l *Lookup) resolve(ctx context.Context, orderNumber string) (*domain.Order, error) {
	if id, err := strconv.ParseInt(orderNumber, 10, 64); err == nil {
		order, err := l.orders.OrderByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get order by id: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}
	order, err := l.orders.OrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}
	return order, nil
}
