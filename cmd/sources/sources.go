// Package sources builds the upstream rate clients from the service configuration
package sources

import (
	"time"

	"github.com/sig-0/vesmonitor/ingest"
	"github.com/sig-0/vesmonitor/provider/ves"
	"github.com/sig-0/vesmonitor/server/config"
)

// New creates the rate source clients. Sources without a URL are disabled,
// apart from the P2P aggregator which is always queried
func New(cfg config.Sources) ingest.Sources {
	sources := ingest.Sources{
		P2P: ves.NewP2PClient(
			cfg.P2P.URL,
			cfg.P2PRelays,
			timeout(cfg.P2P),
		),
	}

	if cfg.Official.URL != "" {
		sources.Official = ves.NewOfficialClient(
			cfg.Official.URL,
			cfg.OfficialAPIKey,
			timeout(cfg.Official),
		)
	}

	if cfg.Fallback.URL != "" {
		sources.Fallback = ves.NewPublicFallbackClient(
			cfg.Fallback.URL,
			timeout(cfg.Fallback),
		)
	}

	if cfg.BCV.URL != "" {
		sources.Scraper = ves.NewBCVScraper(
			cfg.BCV.URL,
			timeout(cfg.BCV),
		)
	}

	if cfg.CrossRate.URL != "" {
		sources.CrossRate = ves.NewCrossRateClient(
			cfg.CrossRate.URL,
			timeout(cfg.CrossRate),
		)
	}

	return sources
}

// timeout returns the endpoint timeout. Zero selects the client default
func timeout(e config.Endpoint) time.Duration {
	return time.Duration(e.Timeout) * time.Second
}
