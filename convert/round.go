package convert

import (
	"github.com/shopspring/decimal"

	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/storage/types"
)

// Round applies the display rounding rule of the target currency
func Round(value float64, target types.Currency) float64 {
	return round(decimal.NewFromFloat(value), target)
}

// Format renders a value the way it is displayed for the target currency
func Format(value float64, target types.Currency) string {
	d := decimal.NewFromFloat(value)

	if target == currencies.VES {
		return d.Ceil().StringFixed(0)
	}

	return d.Round(2).StringFixed(2)
}

// RoundCash rounds an amount to a whole cash figure: fractions up to 0.2001
// round down, anything above rounds up. Used for street-rate catalog prices
func RoundCash(value float64) float64 {
	var (
		d     = decimal.NewFromFloat(value)
		floor = d.Floor()
	)

	if d.Sub(floor).LessThanOrEqual(cashRoundThreshold) {
		return floor.InexactFloat64()
	}

	return floor.Add(decimal.NewFromInt(1)).InexactFloat64()
}

func round(d decimal.Decimal, target types.Currency) float64 {
	if target == currencies.VES {
		return d.Ceil().InexactFloat64()
	}

	return d.Round(2).InexactFloat64()
}
