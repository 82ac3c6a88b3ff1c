package ves

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sig-0/vesmonitor/rates"
)

const (
	// DefaultBCVURL is the central bank website
	DefaultBCVURL = "https://www.bcv.org.ve/"

	// DefaultBCVTimeout bounds the website request
	DefaultBCVTimeout = 10 * time.Second
)

// BCVScraper scrapes the official rates from the central bank website
type BCVScraper struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// NewBCVScraper creates a new instance of the BCV website scraper
func NewBCVScraper(url string, timeout time.Duration) *BCVScraper {
	if timeout <= 0 {
		timeout = DefaultBCVTimeout
	}

	// The website is known to serve an incomplete certificate chain
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Fine to ignore
	}

	return &BCVScraper{
		client: &http.Client{
			Transport: tr,
		},
		url:     url,
		timeout: timeout,
	}
}

func (s *BCVScraper) Name() string {
	return "BCV Web"
}

// Fetch returns the USD and EUR rates published on the website
func (s *BCVScraper) Fetch(ctx context.Context) (rates.OfficialRates, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Prepare the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return rates.OfficialRates{}, fmt.Errorf("unable to create new GET request: %w", err)
	}

	// Execute the request
	resp, err := s.client.Do(req)
	if err != nil {
		return rates.OfficialRates{}, fmt.Errorf("unable to execute GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rates.OfficialRates{}, fmt.Errorf("%w: %d", errInvalidStatus, resp.StatusCode)
	}

	// Construct document for parsing
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return rates.OfficialRates{}, fmt.Errorf("unable to construct query doc: %w", err)
	}

	scraped := rates.OfficialRates{
		BCV: rates.Flat(scrapeRate(doc, "dolar")),
		EUR: rates.Flat(scrapeRate(doc, "euro")),
	}

	if !scraped.BCV.Usable() {
		return rates.OfficialRates{}, errNoUsableRate
	}

	return scraped, nil
}

// scrapeRate reads the rate in the given currency section.
// A missing or unparseable section yields 0
func scrapeRate(doc *goquery.Document, sectionID string) float64 {
	sel := doc.Find("#" + sectionID)
	if sel.Length() == 0 {
		return 0
	}

	txt := sel.Find(".col-sm-6.col-xs-6.centrado").First().Text()
	if strings.TrimSpace(txt) == "" {
		txt = sel.Find(".centrado").First().Text()
	}

	v := rates.ParseNumber(strings.TrimSpace(txt))

	return math.Round(v*1e4) / 1e4
}
