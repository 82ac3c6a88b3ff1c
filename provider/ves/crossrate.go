package ves

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultCrossRateURL is the default USD based FX API
	DefaultCrossRateURL = "https://open.er-api.com/v6/latest/USD"

	// DefaultCrossRateTimeout bounds the cross-rate request
	DefaultCrossRateTimeout = 8 * time.Second
)

// CrossRateClient fetches the USD/EUR ratio used to triangulate the EUR rate
type CrossRateClient struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewCrossRateClient creates a new cross-rate client
func NewCrossRateClient(url string, timeout time.Duration) *CrossRateClient {
	if timeout <= 0 {
		timeout = DefaultCrossRateTimeout
	}

	return &CrossRateClient{
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
	}
}

func (c *CrossRateClient) Name() string {
	return "USD/EUR"
}

// Fetch returns the number of USD per EUR, the reciprocal of the
// quoted EUR per USD rate
func (c *CrossRateClient) Fetch(ctx context.Context) (float64, error) {
	payload, err := fetchJSON(ctx, c.client, c.url, c.timeout, nil)
	if err != nil {
		return 0, err
	}

	if result := payload.Get("result"); result.Exists() && result.String() != "success" {
		return 0, errMalformedPayload
	}

	eur := numberFrom(firstOf(payload, "conversion_rates.EUR", "rates.EUR"))
	if eur <= 0 {
		return 0, errNoUsableRate
	}

	return 1 / eur, nil
}
