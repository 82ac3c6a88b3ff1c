// Package notify detects official rate movements between two snapshots
// and delivers them to opted-in channels
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Change is a single official rate movement
type Change struct {
	Currency  types.Currency `json:"currency"`
	Direction Direction      `json:"direction"`
	Old       float64        `json:"old"`
	New       float64        `json:"new"`
	Percent   float64        `json:"percent"`
}

// Changes compares the official BCV and EUR prices of two snapshots.
// A rate is reported only when it moved and both prices are known
func Changes(before, after rates.Snapshot) []Change {
	var changes []Change

	if c, ok := changeFor(currencies.USD, before.BCV.Price, after.BCV.Price); ok {
		changes = append(changes, c)
	}

	if c, ok := changeFor(currencies.EUR, before.Euro.Price, after.Euro.Price); ok {
		changes = append(changes, c)
	}

	return changes
}

func changeFor(currency types.Currency, oldPrice, newPrice float64) (Change, bool) {
	if oldPrice <= 0 || newPrice <= 0 || oldPrice == newPrice {
		return Change{}, false
	}

	direction := DirectionUp
	if newPrice < oldPrice {
		direction = DirectionDown
	}

	return Change{
		Currency:  currency,
		Direction: direction,
		Old:       oldPrice,
		New:       newPrice,
		Percent:   (newPrice - oldPrice) / oldPrice * 100,
	}, true
}

// Message renders the changes as a human-readable notification
func Message(changes []Change) string {
	lines := make([]string, 0, len(changes))

	for _, c := range changes {
		var (
			label = "Dólar BCV"
			verb  = "subió"
			arrow = "📈"
		)

		if c.Currency == currencies.EUR {
			label = "Euro BCV"
		}

		if c.Direction == DirectionDown {
			verb = "bajó"
			arrow = "📉"
		}

		lines = append(lines, fmt.Sprintf(
			"%s %s %s: %.2f → %.2f Bs (%+.2f%%)",
			arrow,
			label,
			verb,
			c.Old,
			c.New,
			c.Percent,
		))
	}

	return strings.Join(lines, "\n")
}

// Notifier delivers official rate changes
type Notifier interface {
	Notify(context.Context, []Change) error
}

// LogNotifier writes rate changes to a structured log
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a new log notifier. A nil logger discards output
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &LogNotifier{
		logger: logger,
	}
}

func (n *LogNotifier) Notify(_ context.Context, changes []Change) error {
	for _, c := range changes {
		n.logger.Info(
			"official rate changed",
			"currency", c.Currency,
			"direction", c.Direction,
			"old", c.Old,
			"new", c.New,
			"percent", c.Percent,
		)
	}

	return nil
}

// Multi fans out changes to every notifier, and joins their errors
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, changes []Change) error {
	var errs []error

	for _, n := range m {
		if err := n.Notify(ctx, changes); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
