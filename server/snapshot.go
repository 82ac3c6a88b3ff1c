package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/ingest"
	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

var (
	errRefreshThrottled = errors.New("too many refresh requests")
	errInvalidAmount    = errors.New("invalid amount")
	errInvalidCash      = errors.New("invalid cash flag")
)

// Snapshot serves the current snapshot, with the offline flag and the USDT/BCV gap
func (s *Server) Snapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.monitor.Snapshot()

	writeJSON(w, http.StatusOK, &SnapshotResponse{
		Snapshot: snap,
		Status:   s.monitor.LastStatus(),
		Offline:  s.monitor.Offline(),
		Gap:      convert.Gap(snap),
	})
}

// Refresh runs a refresh cycle on demand
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	if s.refreshLimiter != nil && !s.refreshLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errRefreshThrottled)

		return
	}

	status, err := s.monitor.Refresh(r.Context())
	if errors.Is(err, ingest.ErrRefreshInProgress) {
		writeError(w, http.StatusConflict, err)

		return
	}

	if err != nil {
		s.logger.Warn(
			"unable to refresh rates",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, &RefreshResponse{
		Snapshot: s.monitor.Snapshot(),
		Status:   status,
	})
}

// Convert converts an amount against the current snapshot.
// The target currency is inferred from the source when omitted
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	req, err := parseConvertRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	writeJSON(w, http.StatusOK, s.monitor.Convert(req))
}

func parseConvertRequest(r *http.Request) (convert.Request, error) {
	query := r.URL.Query()

	// Amounts use either decimal separator
	amount := rates.ParseNumber(strings.TrimSpace(query.Get("amount")))
	if amount <= 0 {
		return convert.Request{}, errInvalidAmount
	}

	from, err := currencies.Parse(query.Get("from"))
	if err != nil {
		return convert.Request{}, err
	}

	var to types.Currency

	if v := strings.TrimSpace(query.Get("to")); v != "" {
		if to, err = currencies.Parse(v); err != nil {
			return convert.Request{}, err
		}
	}

	var cash bool

	if v := strings.TrimSpace(query.Get("cash")); v != "" {
		if cash, err = strconv.ParseBool(v); err != nil {
			return convert.Request{}, errInvalidCash
		}
	}

	return convert.Request{
		From:   from,
		To:     to,
		Amount: amount,
		Cash:   cash,
	}, nil
}
