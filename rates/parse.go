package rates

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a locale-ambiguous numeric value.
// The last '.' or ',' is treated as the decimal separator, every other
// separator is dropped. Unparseable input yields 0
func ParseNumber(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(v)
	case float32:
		return finiteOrZero(float64(v))
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		return parseNumberString(v.String())
	case string:
		return parseNumberString(v)
	default:
		return 0
	}
}

// FormatNumber renders a parsed value in a form ParseNumber reads back unchanged
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseNumberString(s string) float64 {
	var b strings.Builder

	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" || clean == "." || clean == "," {
		return 0
	}

	idx := strings.LastIndexAny(clean, ".,")
	if idx == -1 {
		return parseFloat(clean)
	}

	var (
		intPart  = strings.NewReplacer(".", "", ",", "").Replace(clean[:idx])
		fracPart = clean[idx+1:]
	)

	if intPart == "" {
		intPart = "0"
	}

	if fracPart == "" {
		fracPart = "0"
	}

	return parseFloat(intPart + "." + fracPart)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}

	return finiteOrZero(f)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return v
}
