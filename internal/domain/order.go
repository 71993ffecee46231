package domain

import "time"

// OrderItem is a line item of an order.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Order is the mirrored view of a commerce order.
type Order struct {
	ID               int64       `json:"id"`
	Number           string      `json:"number"`
	Status           string      `json:"status"`
	Total            float64     `json:"total"`
	Currency         string      `json:"currency"`
	BillingName      string      `json:"billing_name,omitempty"`
	BillingEmail     string      `json:"billing_email,omitempty"`
	Items            []OrderItem `json:"items,omitempty"`
	ShippingMethod   string      `json:"shipping_method,omitempty"`
	ShippingMethodID string      `json:"shipping_method_id,omitempty"`
	TrackingNumber   string      `json:"tracking_number,omitempty"`
	DeliveryDate     *time.Time  `json:"delivery_date,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}
