package models

import (
	"time"

	"github.com/Badr070118/lupeti-project-sub000/pricing"
	"github.com/google/uuid"
)

// Product is owned by the catalog. This service reads it and decrements stock.
type Product struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string                `gorm:"type:varchar(255);not null" json:"title"`
	Price         int64                 `gorm:"not null;check:chk_products_price,price >= 0" json:"price"`
	OriginalPrice *int64                `json:"original_price,omitempty"`
	Currency      string                `gorm:"type:varchar(3);not null" json:"currency"`
	DiscountType  *pricing.DiscountType `gorm:"type:varchar(10)" json:"discount_type,omitempty"`
	DiscountValue *int64                `json:"discount_value,omitempty"`
	PromoStart    *time.Time            `json:"promo_start,omitempty"`
	PromoEnd      *time.Time            `json:"promo_end,omitempty"`
	Stock         int                   `gorm:"not null;check:chk_products_stock,stock >= 0" json:"stock"`
	IsActive      bool                  `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// PricedItem projects the product onto the resolver input.
func (p *Product) PricedItem() pricing.PricedItem {
	item := pricing.PricedItem{
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
	}
	if p.DiscountType != nil && p.DiscountValue != nil {
		item.Discount = &pricing.Discount{
			Type:  *p.DiscountType,
			Value: *p.DiscountValue,
			Start: p.PromoStart,
			End:   p.PromoEnd,
		}
	}
	return item
}

// Quote prices the product at now.
func (p *Product) Quote(now time.Time) pricing.Quote {
	return pricing.Resolve(p.PricedItem(), now)
}

type ProductQuote struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Currency  string    `json:"currency"`
	InStock   bool      `json:"in_stock"`
	pricing.Quote
}
