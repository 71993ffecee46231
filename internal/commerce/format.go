package commerce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xiaot623/gogo/chatbot/internal/domain"
)

// NotAvailable replaces any placeholder whose value is missing.
const NotAvailable = "Not available"

const dateLayout = "January 2, 2006"

// DefaultTemplate is used when no response template is configured.
const DefaultTemplate = `Here's your order information:

Order #[order_number]
Status: [order_status]
Order Date: [order_date]
Total: [order_total]

Items: [order_items]

Shipping Method: [shipping_method]
Tracking Number: [tracking_number]
Estimated Delivery: [estimated_delivery]

If you have any questions about your order, please don't hesitate to ask!`

var shippingDays = map[string]int{
	"free_shipping": 5,
	"flat_rate":     3,
	"local_pickup":  1,
	"expedited":     2,
}

const defaultShippingDays = 5

// Format substitutes order fields into template.
func Format(template string, o *domain.Order) string {
	number := o.Number
	if number == "" {
		number = strconv.FormatInt(o.ID, 10)
	}
	r := strings.NewReplacer(
		"[order_number]", orNA(number),
		"[order_status]", orNA(StatusName(o.Status)),
		"[order_date]", formatDate(o.CreatedAt),
		"[order_total]", FormatMoney(o.Total, o.Currency),
		"[billing_name]", orNA(o.BillingName),
		"[billing_email]", orNA(o.BillingEmail),
		"[order_items]", orNA(formatItems(o.Items)),
		"[shipping_method]", orNA(o.ShippingMethod),
		"[tracking_number]", orNA(o.TrackingNumber),
		"[estimated_delivery]", EstimatedDelivery(o),
	)
	return r.Replace(template)
}

// EstimatedDelivery returns the stored delivery date, or the order date plus
// the shipping method's usual transit days.
func EstimatedDelivery(o *domain.Order) string {
	if o.DeliveryDate != nil && !o.DeliveryDate.IsZero() {
		return o.DeliveryDate.Format(dateLayout)
	}
	if o.ShippingMethodID == "" || o.CreatedAt.IsZero() {
		return NotAvailable
	}
	days, ok := shippingDays[o.ShippingMethodID]
	if !ok {
		days = defaultShippingDays
	}
	y, m, d := o.CreatedAt.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, o.CreatedAt.Location()).Format(dateLayout)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format(dateLayout)
}

// StatusName turns a status slug such as "on-hold" into "On hold".
func StatusName(status string) string {
	status = strings.TrimPrefix(strings.TrimSpace(status), "wc-")
	if status == "" {
		return ""
	}
	status = strings.ReplaceAll(status, "-", " ")
	return strings.ToUpper(status[:1]) + status[1:]
}

// FormatMoney renders an amount with its currency symbol.
func FormatMoney(amount float64, currency string) string {
	switch strings.ToUpper(currency) {
	case "", "USD":
		return fmt.Sprintf("$%.2f", amount)
	case "EUR":
		return fmt.Sprintf("€%.2f", amount)
	case "GBP":
		return fmt.Sprintf("£%.2f", amount)
	default:
		return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), amount)
	}
}

func formatItems(items []domain.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, ", ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
