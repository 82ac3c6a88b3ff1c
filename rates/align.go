package rates

import "math"

const (
	alignLowerBound = 0.20
	alignUpperBound = 5.0
)

// Align corrects order-of-magnitude errors in value, shifting it by powers
// of ten until it lies within [anchor*0.20, anchor*5.0].
// Non-positive or non-finite inputs are returned unchanged
func Align(value, anchor float64) float64 {
	if value <= 0 || anchor <= 0 {
		return value
	}

	if math.IsInf(value, 0) || math.IsInf(anchor, 0) || math.IsNaN(value) || math.IsNaN(anchor) {
		return value
	}

	for value < anchor*alignLowerBound {
		value *= 10
	}

	for value > anchor*alignUpperBound {
		value /= 10
	}

	return value
}
