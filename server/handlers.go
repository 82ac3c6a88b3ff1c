package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/vesmonitor/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var (
	errUnableToFetchRates      = errors.New("unable to fetch rates")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")
	errUnableToFetchSources    = errors.New("unable to fetch sources")
	errHistoryDisabled         = errors.New("rate history is disabled")

	errInvalidLimit    = errors.New("invalid limit")
	errInvalidOffset   = errors.New("invalid offset")
	errInvalidType     = errors.New("invalid type")
	errInvalidAsOf     = errors.New("invalid as_of (must be RFC3339 UTC)")
	errInvalidCurrency = errors.New("invalid currency (must be 3 or 4 letters A-Z)")
)

var currencySymbolRegex = regexp.MustCompile(`^[A-Z]{3,4}$`)

// RatesForPair serves the historical rates of a currency pair
func (s *Server) RatesForPair(w http.ResponseWriter, r *http.Request) {
	// Parse the target currency
	target, err := parseCurrencySymbol(chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	s.ratesFor(w, r, &target)
}

// RatesForBase serves the historical rates of a base currency, for every target
func (s *Server) RatesForBase(w http.ResponseWriter, r *http.Request) {
	s.ratesFor(w, r, nil)
}

func (s *Server) ratesFor(w http.ResponseWriter, r *http.Request, target *types.Currency) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)

		return
	}

	var (
		query = r.URL.Query()

		asOfParam   = query.Get("as_of")
		limitParam  = query.Get("limit")
		offsetParam = query.Get("offset")

		sourceParam = query.Get("source")
		typeParam   = query.Get("type")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(chi.URLParam(r, "base"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the effective date (defaults to now)
	asOf, err := parseAsOf(asOfParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the source and rate type (optional)
	source, rateType, err := parseSourceAndType(sourceParam, typeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.RateQuery{
		Base:     base,
		Target:   target,
		Source:   source,
		RateType: rateType,
		Limit:    limit,
		Offset:   offset,
	}

	page, err := s.history.RateAsOf(r.Context(), q, asOf)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Sources lists the sources present in the rate history
func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)

		return
	}

	items, err := s.history.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	writeJSON(w, http.StatusOK, &SourcesResponse{
		Results: items,
	})
}

// Currencies lists the currencies present in the rate history
func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)

		return
	}

	items, err := s.history.ListCurrencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	writeJSON(w, http.StatusOK, &CurrenciesResponse{
		Results: items,
	})
}

func parseAsOf(asOfRaw string) (time.Time, error) {
	v := strings.TrimSpace(asOfRaw)
	if v == "" {
		return time.Now().UTC(), nil // default is now
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errInvalidAsOf
	}

	return t.UTC(), nil
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n)
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func parseSourceAndType(sourceRaw, typeRaw string) (*types.Source, *types.RateType, error) {
	var src *types.Source

	if v := strings.TrimSpace(sourceRaw); v != "" {
		s := types.Source(v)

		src = &s
	}

	var rt *types.RateType

	if v := strings.TrimSpace(typeRaw); v != "" {
		t := types.RateType(strings.ToUpper(v))

		switch t {
		case types.RateTypeMID, types.RateTypeBUY, types.RateTypeSELL:
			rt = &t
		default:
			return nil, nil, errInvalidType
		}
	}

	return src, rt, nil
}

func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if !currencySymbolRegex.MatchString(s) {
		return "", errInvalidCurrency
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &ErrorResponse{
		Error: err.Error(),
	})
}
