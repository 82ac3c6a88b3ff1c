// Package convert implements the currency conversion rules used by every
// consumer of the rate snapshot: the rate routing table between VES, USDT,
// USD (BCV) and EUR, the display rounding contract and the cash premium.
//
// Rounding applies to committed results only. A VES result is rounded up to
// the next integer, any other currency is fixed to exactly 2 decimals.
package convert

import (
	"github.com/shopspring/decimal"

	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

// Rate names reported with a conversion
const (
	RateUSDT     = "Tasa USDT"
	RateBCV      = "Tasa BCV"
	RateEuro     = "Tasa Euro"
	RateGap      = "Brecha USDT/BCV"
	RateUSDTEuro = "Cruce USDT/EUR"
	RateBCVUSDT  = "Cruce BCV/USDT"
	RateBCVEuro  = "Cruce BCV/EUR"
	RateEuroBCV  = "Cruce EUR/BCV"
	RateIdentity = "Misma moneda"
)

var (
	// cashPremium is the uplift of physical cash over digital USDT
	cashPremium = decimal.RequireFromString("1.05")

	// cashRoundThreshold is the highest fraction RoundCash rounds down
	cashRoundThreshold = decimal.RequireFromString("0.2001")
)

// Request is a single conversion request.
// An empty To lets the engine infer the target currency
type Request struct {
	From   types.Currency `json:"from"`
	To     types.Currency `json:"to,omitempty"`
	Amount float64        `json:"amount"`
	Cash   bool           `json:"cash,omitempty"`
}

// Result is the outcome of a conversion
type Result struct {
	Target   types.Currency `json:"target"`
	RateName string         `json:"rate_name"`
	Value    float64        `json:"value"`
	RateUsed float64        `json:"rate_used"`
}

// Convert converts amount between two currencies and applies the rounding rule
// of the resolved target currency (EUR to USDT resolves to USD)
func Convert(amount float64, from, to types.Currency, snapshot rates.Snapshot) float64 {
	return Resolve(amount, from, to, snapshot, false).Value
}

// Do executes the given conversion request
func Do(req Request, snapshot rates.Snapshot) Result {
	return Resolve(req.Amount, req.From, req.To, snapshot, req.Cash)
}

// Resolve performs a "smart" conversion: when target is empty it is inferred
// from the source (VES converts to USD, anything else to VES). The cash flag
// applies the cash premium to the amount before conversion
func Resolve(
	amount float64,
	source types.Currency,
	target types.Currency,
	snapshot rates.Snapshot,
	cash bool,
) Result {
	if target == "" {
		target = DefaultTarget(source)
	}

	rate, name, resolved := route(source, target, snapshot)

	value := decimal.NewFromFloat(amount)
	if cash {
		value = value.Mul(cashPremium)
	}

	return Result{
		Value:    round(value.Mul(decimal.NewFromFloat(rate)), resolved),
		RateUsed: rate,
		RateName: name,
		Target:   resolved,
	}
}

// DefaultTarget returns the inferred target currency for a source currency
func DefaultTarget(source types.Currency) types.Currency {
	if source == currencies.VES {
		return currencies.USD
	}

	return currencies.VES
}

// route resolves the rate, its name and the effective target currency
func route(source, target types.Currency, s rates.Snapshot) (float64, string, types.Currency) {
	if source == target {
		return 1, RateIdentity, target
	}

	var (
		usdt = s.USDT.Price
		bcv  = s.BCV.Price
		euro = s.Euro.Price
	)

	switch source {
	case currencies.USDT:
		switch target {
		case currencies.USD:
			return ratio(usdt, bcv), RateGap, currencies.USD
		case currencies.EUR:
			return ratio(usdt, euro), RateUSDTEuro, currencies.EUR
		default:
			return usdt, RateUSDT, currencies.VES
		}
	case currencies.USD:
		switch target {
		case currencies.USDT:
			return ratio(bcv, usdt), RateBCVUSDT, currencies.USDT
		case currencies.EUR:
			return ratio(bcv, euro), RateBCVEuro, currencies.EUR
		default:
			return bcv, RateBCV, currencies.VES
		}
	case currencies.EUR:
		switch target {
		case currencies.USD, currencies.USDT:
			return ratio(euro, bcv), RateEuroBCV, currencies.USD
		default:
			return euro, RateEuro, currencies.VES
		}
	case currencies.VES:
		switch target {
		case currencies.USDT:
			return ratio(1, usdt), RateUSDT, currencies.USDT
		case currencies.EUR:
			return ratio(1, euro), RateEuro, currencies.EUR
		default:
			return ratio(1, bcv), RateBCV, currencies.USD
		}
	default:
		return 0, "", target
	}
}

// ratio divides a by b, yielding 0 for unknown (non-positive) rates
func ratio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}

	return a / b
}

// Gap returns the divergence between the P2P and the official rate, in percent
func Gap(s rates.Snapshot) float64 {
	r := ratio(s.USDT.Price, s.BCV.Price)
	if r == 0 {
		return 0
	}

	return (r - 1) * 100
}
