package storage

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

// ErrInvalidKey is returned when a snapshot key is not a valid storage key
var ErrInvalidKey = errors.New("invalid snapshot key")

var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)

// ValidateKey verifies the snapshot key can be used by every storage backend
func ValidateKey(key string) error {
	if !keyRegex.MatchString(key) {
		return ErrInvalidKey
	}

	return nil
}

// Snapshots is an abstraction over the persisted last-known-good snapshot
type Snapshots interface {
	// LoadSnapshot loads the snapshot stored under the given key.
	// A missing snapshot is not an error, and yields nil
	LoadSnapshot(context.Context, string) (*rates.Snapshot, error)

	// SaveSnapshot replaces the snapshot stored under the given key
	SaveSnapshot(context.Context, string, rates.Snapshot) error
}

// History is an abstraction over historical exchange rate data
type History interface {
	// SaveExchangeRate saves the given exchange rate data point
	SaveExchangeRate(context.Context, *types.ExchangeRate) error

	// RateAsOf fetches the rate as of the given time
	RateAsOf(context.Context, *types.RateQuery, time.Time) (*types.Page[*types.ExchangeRate], error)

	// ListSources lists all present sources for fx rates
	ListSources(context.Context) ([]types.Source, error)

	// ListCurrencies lists all currencies present
	ListCurrencies(context.Context) ([]types.Currency, error)
}

// Storage is the complete monitor storage
type Storage interface {
	Snapshots
	History
}

type combined struct {
	Snapshots
	History
}

// Combine joins separate snapshot and history backends into a single Storage
func Combine(snapshots Snapshots, history History) Storage {
	return combined{
		Snapshots: snapshots,
		History:   history,
	}
}
