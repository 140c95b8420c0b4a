package models

import (
	"fmt"
	"strings"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFailed         OrderStatus = "FAILED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusDelivered},
}

// ParseOrderStatus accepts any casing of a known status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[status]; ok {
		return status, nil
	}
	switch status {
	case OrderStatusFailed, OrderStatusCancelled, OrderStatusDelivered:
		return status, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s. PAID is not terminal
// here because fulfilment moves it on to SHIPPED.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusPending},
	PaymentStatusPending:   {PaymentStatusPaid, PaymentStatusFailed},
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// PathTo returns the transitions needed to walk from s to target, or nil when
// target is unreachable. An INITIATED payment settles by passing through PENDING.
func (s PaymentStatus) PathTo(target PaymentStatus) []PaymentStatus {
	if s.CanTransitionTo(target) {
		return []PaymentStatus{target}
	}
	for _, next := range paymentTransitions[s] {
		if rest := next.PathTo(target); rest != nil {
			return append([]PaymentStatus{next}, rest...)
		}
	}
	return nil
}
