package ves

import (
	"context"
	"net/http"
	"time"

	"github.com/sig-0/vesmonitor/rates"
)

// DefaultOfficialTimeout bounds the official aggregator request
const DefaultOfficialTimeout = 8 * time.Second

// OfficialClient fetches the official BCV and EUR rates from a
// privately hosted aggregator
type OfficialClient struct {
	client  *http.Client
	url     string
	apiKey  string
	timeout time.Duration
}

// NewOfficialClient creates a new official aggregator client.
// The API key is sent as a bearer token, if set
func NewOfficialClient(url, apiKey string, timeout time.Duration) *OfficialClient {
	if timeout <= 0 {
		timeout = DefaultOfficialTimeout
	}

	return &OfficialClient{
		client:  &http.Client{},
		url:     url,
		apiKey:  apiKey,
		timeout: timeout,
	}
}

func (c *OfficialClient) Name() string {
	return "BCV Oficial"
}

// Fetch returns the official rates. Fields may be flat values or
// {price, change} objects; a payload without any usable price is an error
func (c *OfficialClient) Fetch(ctx context.Context) (rates.OfficialRates, error) {
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		}
	}

	payload, err := fetchJSON(ctx, c.client, c.url, c.timeout, headers)
	if err != nil {
		return rates.OfficialRates{}, err
	}

	official := rates.OfficialRates{
		BCV: rawRateFrom(firstOf(payload, "bcv", "usd")),
		EUR: rawRateFrom(firstOf(payload, "euro", "eur")),
	}

	if !official.BCV.Usable() && !official.EUR.Usable() {
		return rates.OfficialRates{}, errNoUsableRate
	}

	return official, nil
}
