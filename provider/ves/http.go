package ves

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sig-0/vesmonitor/rates"
)

var (
	errInvalidStatus    = errors.New("invalid status code received")
	errMalformedPayload = errors.New("malformed payload")
	errNoUsableRate     = errors.New("no usable rate in payload")
)

// maxBodySize caps the size of any source response
const maxBodySize = 1 << 20

// fetchBody executes a timeout-bounded GET request and returns the response body
func fetchBody(
	ctx context.Context,
	client *http.Client,
	url string,
	timeout time.Duration,
	headers map[string]string,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("unable to create new GET request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// Execute the request
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", errInvalidStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	return body, nil
}

// fetchJSON fetches a body and verifies it is valid JSON
func fetchJSON(
	ctx context.Context,
	client *http.Client,
	url string,
	timeout time.Duration,
	headers map[string]string,
) (gjson.Result, error) {
	body, err := fetchBody(ctx, client, url, timeout, headers)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errMalformedPayload
	}

	return gjson.ParseBytes(body), nil
}

// numberFrom reads a flat numeric value (number or numeric string).
// Anything else resolves to 0
func numberFrom(value gjson.Result) float64 {
	switch value.Type {
	case gjson.Number:
		return rates.ParseNumber(value.Float())
	case gjson.String:
		return rates.ParseNumber(value.String())
	default:
		return 0
	}
}

// signedNumberFrom reads a value that may carry a sign, such as a percent change.
// The number parser strips signs, so strings are parsed with the sign restored
func signedNumberFrom(value gjson.Result) (float64, bool) {
	switch value.Type {
	case gjson.Number:
		return value.Float(), true
	case gjson.String:
		s := value.String()
		if s == "" {
			return 0, false
		}

		v := rates.ParseNumber(s)
		if s[0] == '-' {
			v = -v
		}

		return v, true
	default:
		return 0, false
	}
}

// rawRateFrom normalizes a rate field that is either a flat number
// or a {price, change} object
func rawRateFrom(value gjson.Result) rates.RawRate {
	if !value.IsObject() {
		return rates.Flat(numberFrom(value))
	}

	price := numberFrom(value.Get("price"))

	change, ok := signedNumberFrom(value.Get("change"))
	if !ok {
		return rates.Flat(price)
	}

	return rates.Detailed(price, change)
}

// firstOf returns the first existing field from the given paths
func firstOf(value gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if field := value.Get(path); field.Exists() {
			return field
		}
	}

	return gjson.Result{}
}
