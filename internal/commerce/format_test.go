package commerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

func TestFormatMissingFieldsUseNotAvailable(t *testing.T) {
	o := &domain.Order{ID: 9, Status: "", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	got := Format("[order_number]|[order_status]|[order_items]|[shipping_method]|[tracking_number]|[estimated_delivery]|[billing_email]", o)
	assert.Equal(t, "9|Not available|Not available|Not available|Not available|Not available|Not available", got)
}

func TestFormatZeroOrderDate(t *testing.T) {
	o := &domain.Order{ID: 3, Number: "1003"}
	assert.Equal(t, "Order #1003 placed Not available", Format("Order #[order_number] placed [order_date]", o))

	o.CreatedAt = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Order #1003 placed January 2, 2026", Format("Order #[order_number] placed [order_date]", o))
}

func TestEstimatedDelivery(t *testing.T) {
	created := time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC)
	delivery := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		order domain.Order
		want  string
	}{
		{"explicit date", domain.Order{CreatedAt: created, DeliveryDate: &delivery, ShippingMethodID: "flat_rate"}, "February 14, 2026"},
		{"local pickup", domain.Order{CreatedAt: created, ShippingMethodID: "local_pickup"}, "January 31, 2026"},
		{"expedited", domain.Order{CreatedAt: created, ShippingMethodID: "expedited"}, "February 1, 2026"},
		{"unknown method", domain.Order{CreatedAt: created, ShippingMethodID: "drone"}, "February 4, 2026"},
		{"no shipping", domain.Order{CreatedAt: created}, NotAvailable},
		{"no order date", domain.Order{ShippingMethodID: "flat_rate"}, NotAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimatedDelivery(&tt.order))
		})
	}
}

func TestStatusNameAndMoney(t *testing.T) {
	assert.Equal(t, "On hold", StatusName("on-hold"))
	assert.Equal(t, "Completed", StatusName("wc-completed"))
	assert.Equal(t, "$5.50", FormatMoney(5.5, ""))
	assert.Equal(t, "€10.00", FormatMoney(10, "eur"))
	assert.Equal(t, "CAD 1.25", FormatMoney(1.25, "CAD"))
}
