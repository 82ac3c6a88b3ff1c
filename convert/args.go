package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
)

// ErrInvalidUsage is returned for malformed conversion arguments
var ErrInvalidUsage = errors.New("usage: /convertir <monto> <moneda> [destino] [efectivo]")

// CashKeyword marks a conversion of physical cash
const CashKeyword = "efectivo"

// ParseArgs parses "<amount> <currency> [target] [efectivo]".
// The amount accepts the locale formats of rates.ParseNumber
func ParseArgs(args []string) (Request, error) {
	if len(args) < 2 {
		return Request{}, ErrInvalidUsage
	}

	amount := rates.ParseNumber(args[0])
	if amount <= 0 {
		return Request{}, ErrInvalidUsage
	}

	from, err := currencies.Parse(args[1])
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Amount: amount,
		From:   from,
	}

	for _, arg := range args[2:] {
		if strings.EqualFold(arg, CashKeyword) {
			req.Cash = true

			continue
		}

		to, err := currencies.Parse(arg)
		if err != nil {
			return Request{}, err
		}

		req.To = to
	}

	return req, nil
}

// Message renders a conversion result as a single line
func Message(req Request, res Result) string {
	if res.RateUsed == 0 {
		return "Tasa no disponible para esta conversión"
	}

	msg := fmt.Sprintf(
		"%s %s = %s %s (%s: %s)",
		strconv.FormatFloat(req.Amount, 'f', -1, 64),
		req.From,
		Format(res.Value, res.Target),
		res.Target,
		res.RateName,
		strconv.FormatFloat(res.RateUsed, 'f', 4, 64),
	)

	if req.Cash {
		msg += " [" + CashKeyword + "]"
	}

	return msg
}
