package ves

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultFallbackURL is the default public dollar-rate API
	DefaultFallbackURL = "https://ve.dolarapi.com/v1/dolares"

	// DefaultFallbackTimeout bounds the public fallback request
	DefaultFallbackTimeout = 8 * time.Second

	officialEntry = "oficial"
)

// PublicFallbackClient fetches the official rate from a public dollar API
// that lists several rate entries
type PublicFallbackClient struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewPublicFallbackClient creates a new public fallback client
func NewPublicFallbackClient(url string, timeout time.Duration) *PublicFallbackClient {
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}

	return &PublicFallbackClient{
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
	}
}

func (c *PublicFallbackClient) Name() string {
	return "BCV Oficial (Respaldo)"
}

// Fetch returns the average of the entry flagged as official
func (c *PublicFallbackClient) Fetch(ctx context.Context) (float64, error) {
	payload, err := fetchJSON(ctx, c.client, c.url, c.timeout, nil)
	if err != nil {
		return 0, err
	}

	if !payload.IsArray() {
		return 0, errMalformedPayload
	}

	var price float64

	payload.ForEach(func(_, entry gjson.Result) bool {
		name := firstOf(entry, "fuente", "nombre").String()
		if !strings.EqualFold(strings.TrimSpace(name), officialEntry) {
			return true
		}

		price = numberFrom(entry.Get("promedio"))

		return false
	})

	if price <= 0 {
		return 0, errNoUsableRate
	}

	return price, nil
}
