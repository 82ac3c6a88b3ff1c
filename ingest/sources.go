package ingest

import (
	"context"

	"github.com/sig-0/vesmonitor/rates"
)

// ValueSource is a rate source yielding a single value
// (the P2P price, the public fallback rate or the cross rate)
type ValueSource interface {
	// Name returns the human-readable name of the source
	Name() string

	// Fetch performs a single timeout-bounded fetch
	Fetch(context.Context) (float64, error)
}

// RatesSource is a rate source yielding the official USD and EUR rates
type RatesSource interface {
	// Name returns the human-readable name of the source
	Name() string

	// Fetch performs a single timeout-bounded fetch
	Fetch(context.Context) (rates.OfficialRates, error)
}

// Sources are the rate sources queried on every refresh cycle.
// A nil source is skipped, and counts as unavailable
type Sources struct {
	P2P       ValueSource
	Official  RatesSource
	Fallback  ValueSource
	Scraper   RatesSource
	CrossRate ValueSource
}
