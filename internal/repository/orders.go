package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

const orderColumns = `id, number, status, total, currency, billing_name, billing_email, items, shipping_method, shipping_method_id, tracking_number, delivery_date, created_at`

// UpsertOrder mirrors an order from the commerce backend.
func (s *SQLiteStore) UpsertOrder(ctx context.Context, order *domain.Order) error {
	if order.ID <= 0 {
		return fmt.Errorf("order id is required")
	}
	if order.Currency == "" {
		order.Currency = "USD"
	}
	order.CreatedAt = utc(order.CreatedAt)

	var items sql.NullString
	if len(order.Items) > 0 {
		data, err := json.Marshal(order.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal items: %w", err)
		}
		items = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number, status = excluded.status, total = excluded.total,
			currency = excluded.currency, billing_name = excluded.billing_name,
			billing_email = excluded.billing_email, items = excluded.items,
			shipping_method = excluded.shipping_method, shipping_method_id = excluded.shipping_method_id,
			tracking_number = excluded.tracking_number, delivery_date = excluded.delivery_date,
			created_at = excluded.created_at`,
		order.ID, nullString(order.Number), order.Status, order.Total, order.Currency,
		nullString(order.BillingName), nullString(order.BillingEmail), items,
		nullString(order.ShippingMethod), nullString(order.ShippingMethodID), nullString(order.TrackingNumber),
		nullTime(order.DeliveryDate), order.CreatedAt)
	return err
}

// OrderByID retrieves an order by its numeric ID. It returns (nil, nil) when absent.
func (s *SQLiteStore) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	return s.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

// OrderByNumber retrieves an order by its display number. It returns (nil, nil) when absent.
func (s *SQLiteStore) OrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE number = ? ORDER BY id LIMIT 1`, number)
}

func (s *SQLiteStore) getOrder(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	var order domain.Order
	var number, billingName, billingEmail, items, shippingMethod, shippingMethodID, tracking sql.NullString
	var deliveryDate sql.NullTime
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&order.ID, &number, &order.Status, &order.Total, &order.Currency,
		&billingName, &billingEmail, &items, &shippingMethod, &shippingMethodID, &tracking, &deliveryDate, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order.Number = number.String
	order.BillingName = billingName.String
	order.BillingEmail = billingEmail.String
	order.ShippingMethod = shippingMethod.String
	order.ShippingMethodID = shippingMethodID.String
	order.TrackingNumber = tracking.String
	order.DeliveryDate = timePtr(deliveryDate)
	if items.Valid && items.String != "" {
		if err := json.Unmarshal([]byte(items.String), &order.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}
	return &order, nil
}
