package ves

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultP2PURL is the default USDT/VES P2P aggregator endpoint
	DefaultP2PURL = "https://criptoya.com/api/binancep2p/USDT/VES/1"

	// DefaultP2PTimeout bounds every single strategy attempt
	DefaultP2PTimeout = 10 * time.Second

	// p2pDepth is the number of top ads averaged per side
	p2pDepth = 3
)

// DefaultP2PRelays are the public CORS relays tried after the direct request.
// The %s verb is replaced with the escaped aggregator URL
var DefaultP2PRelays = []string{
	"https://corsproxy.io/?url=%s",
	"https://api.allorigins.win/raw?url=%s",
}

var errNoStrategy = errors.New("no P2P strategy returned a usable payload")

// P2PClient fetches the USDT/VES P2P market price.
// It tries the aggregator directly, then through each relay, in order
type P2PClient struct {
	client  *http.Client
	url     string
	relays  []string
	timeout time.Duration
}

// NewP2PClient creates a new P2P aggregator client
func NewP2PClient(aggregatorURL string, relays []string, timeout time.Duration) *P2PClient {
	if timeout <= 0 {
		timeout = DefaultP2PTimeout
	}

	return &P2PClient{
		client:  &http.Client{},
		url:     aggregatorURL,
		relays:  relays,
		timeout: timeout,
	}
}

func (c *P2PClient) Name() string {
	return "P2P USDT"
}

// Fetch returns the P2P price of the first strategy with a usable payload
func (c *P2PClient) Fetch(ctx context.Context) (float64, error) {
	var errs []error

	for _, target := range c.strategies() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		payload, err := fetchJSON(ctx, c.client, target, c.timeout, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))

			continue
		}

		price, err := p2pPrice(payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))

			continue
		}

		return price, nil
	}

	return 0, fmt.Errorf("%w: %w", errNoStrategy, errors.Join(errs...))
}

// strategies returns the request URLs in attempt order
func (c *P2PClient) strategies() []string {
	targets := make([]string, 0, len(c.relays)+1)
	targets = append(targets, c.url)

	escaped := url.QueryEscape(c.url)

	for _, relay := range c.relays {
		if !strings.Contains(relay, "%s") {
			continue
		}

		targets = append(targets, fmt.Sprintf(relay, escaped))
	}

	return targets
}

// p2pPrice averages the ask and bid side means.
// If only one side is usable, its mean is the price
func p2pPrice(payload gjson.Result) (float64, error) {
	var (
		ask, askOK = sideMean(payload.Get("ask"))
		bid, bidOK = sideMean(payload.Get("bid"))
	)

	switch {
	case askOK && bidOK:
		return (ask + bid) / 2, nil
	case askOK:
		return ask, nil
	case bidOK:
		return bid, nil
	default:
		return 0, errNoUsableRate
	}
}

// sideMean returns the mean of the top ads of one side.
// Ads are pre-sorted by the aggregator, so the first entries are the best ones
func sideMean(side gjson.Result) (float64, bool) {
	if !side.Exists() {
		return 0, false
	}

	if !side.IsArray() {
		price := adPrice(side)

		return price, price > 0
	}

	var (
		sum   float64
		count int
	)

	side.ForEach(func(_, ad gjson.Result) bool {
		price := adPrice(ad)
		if price <= 0 {
			return true
		}

		sum += price
		count++

		return count < p2pDepth
	})

	if count == 0 {
		return 0, false
	}

	return sum / float64(count), true
}

// adPrice reads a single ad, either a bare price or a {price} object
func adPrice(ad gjson.Result) float64 {
	if ad.IsObject() {
		return numberFrom(ad.Get("price"))
	}

	return numberFrom(ad)
}
