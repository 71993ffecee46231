package commerce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/chatbot/internal/apperr"
	"github.com/xiaot623/gogo/chatbot/internal/domain"
	"github.com/xiaot623/gogo/chatbot/internal/policy"
)

type memOrders struct {
	byID     map[int64]*domain.Order
	byNumber map[string]*domain.Order
}

func (m *memOrders) OrderByID(_ context.Context, id int64) (*domain.Order, error) {
	return m.byID[id], nil
}

func (m *memOrders) OrderByNumber(_ context.Context, number string) (*domain.Order, error) {
	return m.byNumber[number], nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLookup(t *testing.T, cfg Config, orders ...*domain.Order) *Lookup {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultOrderPolicy)
	require.NoError(t, err)

	src := &memOrders{byID: map[int64]*domain.Order{}, byNumber: map[string]*domain.Order{}}
	for _, o := range orders {
		src.byID[o.ID] = o
		if o.Number != "" {
			src.byNumber[o.Number] = o
		}
	}
	l := NewLookup(src, engine, cfg)
	l.now = func() time.Time { return fixedNow }
	return l
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:               4521,
		Number:           "4521",
		Status:           "processing",
		Total:            129,
		Currency:         "USD",
		BillingName:      "Jane Doe",
		BillingEmail:     "Jane@Example.com",
		Items:            []domain.OrderItem{{Name: "Widget", Quantity: 2}, {Name: "Gadget", Quantity: 1}},
		ShippingMethod:   "Flat rate",
		ShippingMethodID: "flat_rate",
		CreatedAt:        time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestLookupOrderFormatsDefaultTemplate(t *testing.T) {
	l := newTestLookup(t, Config{RequireEmail: true, MaxDaysBack: 365}, sampleOrder())

	got, err := l.LookupOrder(context.Background(), "4521", "jane@example.com")
	require.NoError(t, err)
	assert.Contains(t, got, "Order #4521")
	assert.Contains(t, got, "Status: Processing")
	assert.Contains(t, got, "Order Date: March 1, 2026")
	assert.Contains(t, got, "Total: $129.00")
	assert.Contains(t, got, "Items: 2x Widget, 1x Gadget")
	assert.Contains(t, got, "Shipping Method: Flat rate")
	assert.Contains(t, got, "Tracking Number: Not available")
	assert.Contains(t, got, "Estimated Delivery: March 4, 2026")
}

func TestLookupOrderByExternalNumber(t *testing.T) {
	o := sampleOrder()
	o.ID = 17
	o.Number = "WC-9001"
	l := newTestLookup(t, Config{MaxDaysBack: 365, Template: "[order_number] [billing_name]"}, o)

	got, err := l.LookupOrder(context.Background(), "WC-9001", "")
	require.NoError(t, err)
	assert.Equal(t, "WC-9001 Jane Doe", got)
}

func TestLookupOrderRefusals(t *testing.T) {
	old := sampleOrder()
	old.ID = 1
	old.Number = "1"
	old.CreatedAt = fixedNow.AddDate(-2, 0, 0)
	l := newTestLookup(t, Config{RequireEmail: true, MaxDaysBack: 365}, sampleOrder(), old)

	got, err := l.LookupOrder(context.Background(), "4521", "someone@else.com")
	require.NoError(t, err)
	assert.Equal(t, MsgEmailMismatch, got)

	got, err = l.LookupOrder(context.Background(), "1", "")
	require.NoError(t, err)
	assert.Equal(t, MsgTooOld, got)

	_, err = l.LookupOrder(context.Background(), "777", "")
	assert.True(t, apperr.IsNotFound(err))

	_, err = l.LookupOrder(context.Background(), " ", "")
	assert.Error(t, err)
}

func TestLookupOrderEmailNotRequired(t *testing.T) {
	l := newTestLookup(t, Config{RequireEmail: false, MaxDaysBack: 365, Template: "[order_status]"}, sampleOrder())
	got, err := l.LookupOrder(context.Background(), "4521", "someone@else.com")
	require.NoError(t, err)
	assert.Equal(t, "Processing", got)
}
