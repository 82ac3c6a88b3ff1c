package ingest

import (
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/vesmonitor/rates"
)

// scheduledRefresh is a single scheduled refresh cycle
type scheduledRefresh struct {
	at time.Time
	id xid.ID
}

// Less is utilized to sort scheduled refreshes by their due-time (earliest == first)
func (a scheduledRefresh) Less(b scheduledRefresh) bool {
	return a.at.Before(b.at)
}

// refreshResult is the outcome of a scheduled refresh
type refreshResult struct {
	err    error
	status rates.Status
	id     xid.ID
}
