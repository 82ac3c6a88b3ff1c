package rates

import "time"

// DefaultCrossRate is the USD per EUR ratio used when no cross-rate source answers
const DefaultCrossRate = 1.18

// RawRate is an upstream rate field after normalization at the ingestion boundary.
// A flat field carries only a price, a detailed one also carries the upstream change
type RawRate struct {
	Change *float64
	Price  float64
}

// Flat creates a RawRate from a bare price
func Flat(price float64) RawRate {
	return RawRate{
		Price: price,
	}
}

// Detailed creates a RawRate from a {price, change} pair
func Detailed(price, change float64) RawRate {
	return RawRate{
		Price:  price,
		Change: &change,
	}
}

// Usable returns true if the rate carries a positive price
func (r RawRate) Usable() bool {
	return r.Price > 0
}

// OfficialRates are the official USD (BCV) and EUR rates of a single source
type OfficialRates struct {
	BCV RawRate
	EUR RawRate
}

// Results are the settled outcomes of one refresh cycle.
// A nil field means the source was unavailable
type Results struct {
	P2P       *float64       // USDT/VES P2P price
	Official  *OfficialRates // private aggregator
	Fallback  *float64       // public API "oficial" entry
	Scraped   *OfficialRates // central bank website
	CrossRate *float64       // USD per EUR
}

// Empty returns true if every source failed
func (r Results) Empty() bool {
	return r.P2P == nil &&
		r.Official == nil &&
		r.Fallback == nil &&
		r.Scraped == nil &&
		r.CrossRate == nil
}

// Reconcile merges the cycle results into a new snapshot derived from prev.
// Fields without a usable update keep their previous values. It never fails:
// a cycle where every source failed yields prev unchanged and StatusOffline
func Reconcile(prev Snapshot, res Results, now time.Time) (Snapshot, Status) {
	if res.Empty() {
		return prev, StatusOffline
	}

	next := prev

	usdtUpdated := false

	if res.P2P != nil && *res.P2P > 0 {
		price := *res.P2P

		next.USDT = Quote{
			Price:  price,
			Source: SourceP2P,
			Type:   QuoteTypeP2P,
			Change: ChangeFor(price, prev.USDT.Price, prev.USDT.Change, nil),
		}

		usdtUpdated = true
	}

	var (
		anchor = next.USDT.Price
		factor = crossFactor(res.CrossRate)
	)

	officialUpdated := applyOfficial(&next, prev, res.Official, anchor, factor)
	if !officialUpdated {
		officialUpdated = applyFallback(&next, prev, res, anchor, factor)
	}

	next.LastUpdate = now

	if usdtUpdated && officialUpdated {
		return next, StatusSuccess
	}

	return next, StatusPartial
}

// applyOfficial applies the primary official path.
// Returns false if the source yielded no usable price
func applyOfficial(next *Snapshot, prev Snapshot, official *OfficialRates, anchor, factor float64) bool {
	if official == nil {
		return false
	}

	if !official.BCV.Usable() && !official.EUR.Usable() {
		return false
	}

	if official.BCV.Usable() {
		next.BCV = quoteFor(
			Align(official.BCV.Price, anchor),
			SourceOfficial,
			prev.BCV,
			official.BCV.Change,
		)
	}

	if official.EUR.Usable() {
		next.Euro = quoteFor(
			Align(official.EUR.Price, anchor),
			SourceOfficial,
			prev.Euro,
			official.EUR.Change,
		)

		return true
	}

	// Only the dollar came through, derive the euro from it
	next.Euro = quoteFor(
		next.BCV.Price*factor,
		SourceEuroTriangulated,
		prev.Euro,
		nil,
	)

	return true
}

// applyFallback applies the fallback chain: public API, then the scraped website.
// Returns false if neither yielded a usable price
func applyFallback(next *Snapshot, prev Snapshot, res Results, anchor, factor float64) bool {
	var (
		price  float64
		source string
	)

	switch {
	case res.Fallback != nil && *res.Fallback > 0:
		price = *res.Fallback
		source = SourceOfficialFallback
	case res.Scraped != nil && res.Scraped.BCV.Usable():
		price = res.Scraped.BCV.Price
		source = SourceOfficialWeb
	default:
		return false
	}

	next.BCV = quoteFor(Align(price, anchor), source, prev.BCV, nil)

	if source == SourceOfficialWeb && res.Scraped.EUR.Usable() {
		next.Euro = quoteFor(Align(res.Scraped.EUR.Price, anchor), source, prev.Euro, nil)

		return true
	}

	next.Euro = quoteFor(next.BCV.Price*factor, SourceEuroTriangulated, prev.Euro, nil)

	return true
}

func quoteFor(price float64, source string, prev Quote, apiChange *float64) Quote {
	return Quote{
		Price:  price,
		Source: source,
		Change: ChangeFor(price, prev.Price, prev.Change, apiChange),
	}
}

func crossFactor(cross *float64) float64 {
	if cross == nil || *cross <= 0 {
		return DefaultCrossRate
	}

	return *cross
}
