package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sig-0/vesmonitor/rates"
)

// gather queries every source concurrently and waits for all of them to settle.
// A failing source is logged and left nil in the results; it never cancels
// its siblings
func gather(ctx context.Context, sources Sources, logger *slog.Logger) rates.Results {
	var (
		res rates.Results
		g   errgroup.Group
	)

	if sources.P2P != nil {
		g.Go(func() error {
			res.P2P = fetchValue(ctx, sources.P2P, logger)

			return nil
		})
	}

	if sources.Official != nil {
		g.Go(func() error {
			res.Official = fetchRates(ctx, sources.Official, logger)

			return nil
		})
	}

	if sources.Fallback != nil {
		g.Go(func() error {
			res.Fallback = fetchValue(ctx, sources.Fallback, logger)

			return nil
		})
	}

	if sources.Scraper != nil {
		g.Go(func() error {
			res.Scraped = fetchRates(ctx, sources.Scraper, logger)

			return nil
		})
	}

	if sources.CrossRate != nil {
		g.Go(func() error {
			res.CrossRate = fetchValue(ctx, sources.CrossRate, logger)

			return nil
		})
	}

	_ = g.Wait() // workers never fail

	return res
}

func fetchValue(ctx context.Context, source ValueSource, logger *slog.Logger) *float64 {
	value, err := source.Fetch(ctx)
	if err != nil {
		logger.Warn(
			"rate source unavailable",
			"source", source.Name(),
			"err", err,
		)

		return nil
	}

	if value <= 0 {
		logger.Warn(
			"rate source returned no usable value",
			"source", source.Name(),
			"value", value,
		)

		return nil
	}

	return &value
}

func fetchRates(ctx context.Context, source RatesSource, logger *slog.Logger) *rates.OfficialRates {
	official, err := source.Fetch(ctx)
	if err != nil {
		logger.Warn(
			"rate source unavailable",
			"source", source.Name(),
			"err", err,
		)

		return nil
	}

	return &official
}
