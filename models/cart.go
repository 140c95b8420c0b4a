package models

import (
	"time"

	"github.com/Badr070118/lupeti-project-sub000/pricing"
	"github.com/google/uuid"
)

// Per-line quantity bounds, inclusive.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 20
)

type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null;check:chk_cart_items_quantity,quantity BETWEEN 1 AND 20" json:"quantity"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidQuantity reports whether qty is within the per-line bounds.
func ValidQuantity(qty int) bool {
	return qty >= MinLineQuantity && qty <= MaxLineQuantity
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartLineView is a cart line with the live product state mirrored in.
type CartLineView struct {
	ProductID uuid.UUID     `json:"product_id"`
	Title     string        `json:"title"`
	Quantity  int           `json:"quantity"`
	Stock     int           `json:"stock"`
	IsActive  bool          `json:"is_active"`
	Price     pricing.Quote `json:"price"`
	LineTotal int64         `json:"line_total"`
}

type CartView struct {
	Items    []CartLineView `json:"items"`
	Subtotal int64          `json:"subtotal"`
	Currency string         `json:"currency"`
}
