// Package pricing computes the effective unit price of a catalog item.
//
// Resolve is pure: the same item and instant always give the same Quote. It
// backs the product quote endpoint, the cart view and the price snapshot
// taken at checkout, so displayed and charged prices cannot diverge.
package pricing

import (
	"time"

	"github.com/Badr070118/lupeti-project-sub000/pkg/money"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountAmount  DiscountType = "AMOUNT"
)

// MaxPercent caps PERCENT discounts regardless of the stored value.
const MaxPercent = 95

// Discount is a time-windowed price reduction. Nil bounds are open.
type Discount struct {
	Type  DiscountType
	Value int64
	Start *time.Time
	End   *time.Time
}

// ActiveAt reports whether now falls within [Start, End].
func (d Discount) ActiveAt(now time.Time) bool {
	if d.Start != nil && now.Before(*d.Start) {
		return false
	}
	if d.End != nil && now.After(*d.End) {
		return false
	}
	return true
}

// PricedItem is the view of a product the resolver needs. Amounts are minor units.
type PricedItem struct {
	Price         int64
	OriginalPrice *int64
	Discount      *Discount
}

type Quote struct {
	OriginalPrice int64 `json:"original_price"`
	FinalPrice    int64 `json:"final_price"`
	IsPromoActive bool  `json:"is_promo_active"`
	Savings       int64 `json:"savings"`
}

// Resolve prices item at now.
func Resolve(item PricedItem, now time.Time) Quote {
	base := item.Price
	if item.OriginalPrice != nil {
		base = *item.OriginalPrice
	}

	switch {
	case item.Discount != nil && item.Discount.ActiveAt(now):
		return newQuote(base, discounted(base, *item.Discount))
	case item.OriginalPrice != nil && item.Price < *item.OriginalPrice:
		return newQuote(*item.OriginalPrice, item.Price)
	default:
		return newQuote(item.Price, item.Price)
	}
}

func discounted(base int64, d Discount) int64 {
	var final int64
	switch d.Type {
	case DiscountPercent:
		pct := min(max(d.Value, 0), MaxPercent)
		final = money.ScalePercent(base, decimal.NewFromInt(100-pct))
	case DiscountAmount:
		final = base - max(d.Value, 0)
	default:
		final = base
	}
	return max(final, 0)
}

func newQuote(original, final int64) Quote {
	if final > original {
		final = original
	}
	return Quote{
		OriginalPrice: original,
		FinalPrice:    final,
		IsPromoActive: final < original,
		Savings:       original - final,
	}
}
