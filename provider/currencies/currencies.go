package currencies

import (
	"errors"
	"strings"

	"github.com/sig-0/vesmonitor/storage/types"
)

var (
	USD  types.Currency = "USD"
	EUR  types.Currency = "EUR"
	VES  types.Currency = "VES"
	USDT types.Currency = "USDT"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// aliases maps the accepted user-facing codes to the four supported currencies.
// BCV is the official dollar, which is the USD rate in this system
var aliases = map[string]types.Currency{
	"USD":  USD,
	"BCV":  USD,
	"EUR":  EUR,
	"EURO": EUR,
	"VES":  VES,
	"BS":   VES,
	"USDT": USDT,
}

// Parse resolves a currency code (or alias) into one of the supported currencies
func Parse(code string) (types.Currency, error) {
	c, ok := aliases[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", ErrUnsupportedCurrency
	}

	return c, nil
}

// All returns the supported currencies
func All() []types.Currency {
	return []types.Currency{VES, USDT, USD, EUR}
}
