// Package money holds amounts as integer minor units tagged with an ISO 4217
// currency. Arithmetic never goes through floating point.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var ErrCurrencyMismatch = errors.New("currency mismatch")

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New validates code as an ISO 4217 currency and returns the amount in it.
func New(amount int64, code string) (Money, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: unit.String()}, nil
}

// ParseCurrency validates and normalises an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return unit, nil
}

func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

func (m Money) Times(qty int) Money {
	return Money{Amount: m.Amount * int64(qty), Currency: m.Currency}
}

// Major renders the amount in major units with the currency's standard
// number of decimals, e.g. 12990 TRY -> "129.90".
func (m Money) Major() string {
	return MajorString(m.Amount, m.Currency)
}

func (m Money) String() string {
	return m.Major() + " " + m.Currency
}

// MajorString formats minor units for currency code. Unknown codes use two decimals.
func MajorString(amount int64, code string) string {
	scale := 2
	if unit, err := ParseCurrency(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	return decimal.New(amount, int32(-scale)).StringFixed(int32(scale))
}

// ScalePercent returns amount * percent / 100 rounded half away from zero to
// a whole minor unit.
func ScalePercent(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
