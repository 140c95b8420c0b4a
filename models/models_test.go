package models_test

import (
	"testing"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderStatusPendingPayment, models.OrderStatusPaid, true},
		{models.OrderStatusPendingPayment, models.OrderStatusFailed, true},
		{models.OrderStatusPendingPayment, models.OrderStatusCancelled, true},
		{models.OrderStatusPendingPayment, models.OrderStatusShipped, false},
		{models.OrderStatusPaid, models.OrderStatusShipped, true},
		{models.OrderStatusPaid, models.OrderStatusCancelled, false},
		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusFailed, models.OrderStatusPaid, false},
		{models.OrderStatusCancelled, models.OrderStatusPendingPayment, false},
		{models.OrderStatusDelivered, models.OrderStatusShipped, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, models.OrderStatusDelivered.IsTerminal())
	assert.True(t, models.OrderStatusCancelled.IsTerminal())
	assert.False(t, models.OrderStatusPaid.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	s, err := models.ParseOrderStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, s)

	s, err = models.ParseOrderStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, s)

	_, err = models.ParseOrderStatus("REFUNDED")
	assert.Error(t, err)
}

func TestPaymentStatus_Transitions(t *testing.T) {
	assert.True(t, models.PaymentStatusInitiated.CanTransitionTo(models.PaymentStatusPending))
	assert.False(t, models.PaymentStatusInitiated.CanTransitionTo(models.PaymentStatusPaid))
	assert.True(t, models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusPaid))
	assert.True(t, models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusFailed))
	assert.False(t, models.PaymentStatusPaid.CanTransitionTo(models.PaymentStatusFailed))
	assert.False(t, models.PaymentStatusFailed.CanTransitionTo(models.PaymentStatusPending))

	assert.Equal(t,
		[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusPaid},
		models.PaymentStatusInitiated.PathTo(models.PaymentStatusPaid))
	assert.Equal(t,
		[]models.PaymentStatus{models.PaymentStatusFailed},
		models.PaymentStatusPending.PathTo(models.PaymentStatusFailed))
	assert.Nil(t, models.PaymentStatusPaid.PathTo(models.PaymentStatusFailed))
}

func TestResolveShipping(t *testing.T) {
	m, cost := models.ResolveShipping("express")
	assert.Equal(t, models.ShippingExpress, m)
	assert.Equal(t, int64(2990), cost)

	m, cost = models.ResolveShipping("")
	assert.Equal(t, models.ShippingStandard, m)
	assert.Equal(t, int64(0), cost)

	m, cost = models.ResolveShipping("TELEPORT")
	assert.Equal(t, models.ShippingStandard, m)
	assert.Equal(t, int64(0), cost)
}

func TestProduct_PricedItem(t *testing.T) {
	pct := pricing.DiscountPercent
	val := int64(20)
	p := models.Product{Price: 5000, DiscountType: &pct, DiscountValue: &val}

	q := p.Quote(time.Now())
	assert.Equal(t, int64(4000), q.FinalPrice)
	assert.True(t, q.IsPromoActive)

	p.DiscountValue = nil
	assert.Nil(t, p.PricedItem().Discount)
}

func TestAddress_OneLine(t *testing.T) {
	a := models.Address{Line1: "Bagdat Cd. 12", District: "Kadikoy", City: "Istanbul", Country: "TR"}
	assert.Equal(t, "Bagdat Cd. 12, Kadikoy, Istanbul, TR", a.OneLine())
}
