package rates

// ChangeFor computes the signed percent change of a quote.
// An upstream change value wins when present and non-zero. An unchanged price
// keeps the previous change (which can hide a real 0% move, kept as observed)
func ChangeFor(newPrice, oldPrice, oldChange float64, apiChange *float64) float64 {
	if apiChange != nil && *apiChange != 0 {
		return *apiChange
	}

	if newPrice == oldPrice {
		return oldChange
	}

	if newPrice <= 0 || oldPrice <= 0 {
		return 0
	}

	return (newPrice - oldPrice) / oldPrice * 100
}
