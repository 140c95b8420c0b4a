package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "STANDARD"
	ShippingExpress   ShippingMethod = "EXPRESS"
	ShippingOvernight ShippingMethod = "OVERNIGHT"
)

// Flat shipping rates in minor units.
var shippingRates = map[ShippingMethod]int64{
	ShippingStandard:  0,
	ShippingExpress:   2990,
	ShippingOvernight: 5990,
}

// ResolveShipping maps a requested method to a known tier and its cost.
// Unknown or empty methods fall back to the cheapest tier.
func ResolveShipping(requested string) (ShippingMethod, int64) {
	method := ShippingMethod(strings.ToUpper(strings.TrimSpace(requested)))
	if cost, ok := shippingRates[method]; ok {
		return method, cost
	}

	cheapest := ShippingStandard
	for m, cost := range shippingRates {
		if cost < shippingRates[cheapest] {
			cheapest = m
		}
	}
	return cheapest, shippingRates[cheapest]
}

// Address is copied verbatim into the order at checkout.
type Address struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2,omitempty" validate:"max=255"`
	District   string `json:"district,omitempty" validate:"max=120"`
	City       string `json:"city" validate:"required,max=120"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Email      string `json:"email" validate:"required,email"`
}

// OneLine renders the address for gateway forms that take a single string.
func (a Address) OneLine() string {
	parts := []string{a.Line1, a.Line2, a.District, a.PostalCode, a.City, a.Country}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

type Order struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Status          OrderStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	Currency        string         `gorm:"type:varchar(3);not null" json:"currency"`
	SubtotalCents   int64          `gorm:"not null" json:"subtotal_cents"`
	ShippingCents   int64          `gorm:"not null" json:"shipping_cents"`
	TotalCents      int64          `gorm:"not null;check:chk_orders_total,total_cents = subtotal_cents + shipping_cents" json:"total_cents"`
	ShippingMethod  ShippingMethod `gorm:"type:varchar(20);not null" json:"shipping_method"`
	ShippingAddress Address        `gorm:"type:jsonb;serializer:json;not null" json:"shipping_address"`
	Items           []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderItem is a snapshot taken at checkout. It is never re-joined to Product.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title"`
	UnitPriceCents int64     `gorm:"not null" json:"unit_price_cents"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	LineTotalCents int64     `gorm:"not null" json:"line_total_cents"`
}

type CheckoutRequest struct {
	ShippingAddress Address `json:"shipping_address"`
	ShippingMethod  string  `json:"shipping_method"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderFilter narrows admin listings.
type OrderFilter struct {
	Status *OrderStatus
}

type OrderResponse struct {
	Orders []Order  `json:"orders"`
	Meta   MetaData `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}
