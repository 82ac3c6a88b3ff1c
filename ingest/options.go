package ingest

import (
	"log/slog"
	"time"

	"github.com/sig-0/vesmonitor/notify"
	"github.com/sig-0/vesmonitor/storage"
)

type Option func(m *Monitor)

// WithLogger specifies the logger for the monitor
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithInterval specifies the period between scheduled refreshes.
// Defaults to 30s
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithQueryInterval specifies how often the schedule is checked for a due refresh.
// Defaults to 1s
func WithQueryInterval(q time.Duration) Option {
	return func(m *Monitor) {
		if q > 0 {
			m.queryInterval = q
		}
	}
}

// WithSnapshotKey specifies the key the snapshot is persisted under
func WithSnapshotKey(key string) Option {
	return func(m *Monitor) {
		m.snapshotKey = key
	}
}

// WithHistory enables recording every published rate as a historical data point
func WithHistory(h storage.History) Option {
	return func(m *Monitor) {
		m.history = h
	}
}

// WithNotifier enables official rate change notifications
func WithNotifier(n notify.Notifier) Option {
	return func(m *Monitor) {
		m.notifier = n
	}
}
