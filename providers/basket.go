package providers

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/Badr070118/lupeti-project-sub000/pkg/money"
	"github.com/samber/lo"
)

var errEmptyBasket = errors.New("basket has no items")

// encodeBasket renders the basket as base64 JSON of [title, "major.minor", qty]
// triples, the format the payment page expects.
func encodeBasket(items []BasketItem, currencyCode string) (string, error) {
	if len(items) == 0 {
		return "", errEmptyBasket
	}
	rows := lo.Map(items, func(item BasketItem, _ int) []any {
		return []any{item.Title, money.MajorString(item.UnitPrice, currencyCode), item.Quantity}
	})
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// gatewayCurrency maps ISO 4217 codes to the gateway's own codes.
func gatewayCurrency(code string) string {
	if code == "TRY" {
		return "TL"
	}
	return code
}
