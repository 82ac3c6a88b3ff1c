package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/notify"
	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
	"github.com/sig-0/vesmonitor/storage/types"
)

// ErrRefreshInProgress is returned when a refresh is requested while another one runs
var ErrRefreshInProgress = errors.New("refresh already in progress")

const (
	// DefaultInterval is the period between scheduled refreshes
	DefaultInterval = 30 * time.Second

	// persistTimeout bounds every storage call made by a refresh
	persistTimeout = 10 * time.Second
)

// Monitor is the rate refresh scheduler. It owns the published snapshot:
// it is the only writer of the rate store
type Monitor struct {
	sources   Sources
	snapshots storage.Snapshots
	history   storage.History
	notifier  notify.Notifier
	store     *rates.Store
	logger    *slog.Logger
	clock     func() time.Time

	snapshotKey string

	q             iq.Queue[scheduledRefresh]
	interval      time.Duration
	queryInterval time.Duration
	qMux          sync.Mutex

	fetching   atomic.Bool
	offline    atomic.Bool
	state      atomic.Value // rates.Status
	lastStatus atomic.Value // rates.Status
}

// New creates a new Monitor instance, seeded with the default snapshot
func New(sources Sources, snapshots storage.Snapshots, opts ...Option) *Monitor {
	m := &Monitor{
		sources:       sources,
		snapshots:     snapshots,
		store:         rates.NewStore(rates.DefaultSnapshot()),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:         func() time.Time { return time.Now().UTC() },
		snapshotKey:   rates.SnapshotKey,
		q:             iq.NewQueue[scheduledRefresh](),
		interval:      DefaultInterval,
		queryInterval: time.Second, // every second
	}

	m.state.Store(rates.StatusIdle)
	m.lastStatus.Store(rates.StatusIdle)

	// Apply the options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Load restores the persisted snapshot, if any.
// Without a persisted snapshot, the monitor keeps the default one
func (m *Monitor) Load(ctx context.Context) error {
	snap, err := m.snapshots.LoadSnapshot(ctx, m.snapshotKey)
	if err != nil {
		return fmt.Errorf("unable to load snapshot: %w", err)
	}

	if snap == nil {
		m.logger.Info("no persisted snapshot found", "key", m.snapshotKey)

		return nil
	}

	m.store.Set(*snap)

	m.logger.Info(
		"restored persisted snapshot",
		"key", m.snapshotKey,
		"last_update", snap.LastUpdate,
	)

	return nil
}

// Start starts the refresh service loop [BLOCKING].
// The first refresh runs immediately, the following ones every interval
func (m *Monitor) Start(ctx context.Context) error {
	var (
		collectorCh = make(chan refreshResult, 1)
		wg          sync.WaitGroup
	)

	defer wg.Wait()

	// Start a listener for due refreshes
	ticker := time.NewTicker(m.queryInterval)
	defer ticker.Stop()

	// handleRefresh starts the refresh, if it is due
	handleRefresh := func() {
		next := m.nextRefresh()
		if next == nil {
			return // nothing is due yet
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			status, err := m.refresh(ctx, next.id)

			select {
			case <-ctx.Done():
			case collectorCh <- refreshResult{id: next.id, status: status, err: err}:
			}
		}()
	}

	// Schedule the boot refresh
	m.scheduleRefresh(m.clock(), xid.New())
	handleRefresh()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor service shut down")

			return nil
		case <-ticker.C:
			handleRefresh()
		case result := <-collectorCh:
			if result.err != nil {
				m.logger.Warn(
					"scheduled refresh skipped",
					"cycle", result.id.String(),
					"err", result.err,
				)
			}

			// Schedule the next refresh
			m.scheduleRefresh(m.clock().Add(m.interval), xid.New())
		}
	}
}

// Refresh runs a refresh cycle immediately, bypassing the schedule.
// The cycle outlives the caller's cancellation, and is bounded by the source timeouts.
// It returns ErrRefreshInProgress if another cycle is running
func (m *Monitor) Refresh(ctx context.Context) (rates.Status, error) {
	return m.refresh(context.WithoutCancel(ctx), xid.New())
}

func (m *Monitor) refresh(ctx context.Context, cycle xid.ID) (rates.Status, error) {
	if !m.fetching.CompareAndSwap(false, true) {
		return rates.StatusFetching, ErrRefreshInProgress
	}

	defer m.fetching.Store(false)

	logger := m.logger.With("cycle", cycle.String())

	m.state.Store(rates.StatusFetching)
	defer m.state.Store(rates.StatusIdle)

	var (
		prev = m.store.Get()
		res  = gather(ctx, m.sources, logger)
	)

	// A cancelled cycle says nothing about the sources
	if err := ctx.Err(); err != nil {
		logger.Info("refresh cycle cancelled", "err", err)

		return m.LastStatus(), err
	}

	next, status := rates.Reconcile(prev, res, m.clock())

	m.lastStatus.Store(status)

	if status == rates.StatusOffline {
		logger.Error("every rate source failed, keeping the last snapshot")

		// Subscribers observe the flag flip through the kept snapshot
		if !m.offline.Swap(true) {
			m.store.Set(prev)
		}

		return status, nil
	}

	m.persist(ctx, next, logger)

	m.offline.Store(false)
	m.store.Set(next)

	logger.Info(
		"published snapshot",
		"status", status,
		"usdt", next.USDT.Price,
		"bcv", next.BCV.Price,
		"bcv_source", next.BCV.Source,
		"euro", next.Euro.Price,
		"euro_source", next.Euro.Source,
	)

	m.recordHistory(ctx, prev, next, logger)
	m.notifyChanges(ctx, prev, next, logger)

	return status, nil
}

// persist saves the snapshot under the versioned key.
// A failed save is logged, and does not block publishing
func (m *Monitor) persist(ctx context.Context, snap rates.Snapshot, logger *slog.Logger) {
	saveCtx, cancelFn := context.WithTimeout(ctx, persistTimeout)
	defer cancelFn()

	if err := m.snapshots.SaveSnapshot(saveCtx, m.snapshotKey, snap); err != nil {
		logger.Error(
			"unable to persist snapshot",
			"key", m.snapshotKey,
			"err", err,
		)
	}
}

// recordHistory saves a data point for every quote that moved
func (m *Monitor) recordHistory(ctx context.Context, prev, next rates.Snapshot, logger *slog.Logger) {
	if m.history == nil {
		return
	}

	saveCtx, cancelFn := context.WithTimeout(ctx, persistTimeout)
	defer cancelFn()

	fetchedAt := m.clock()

	for _, point := range historyPoints(prev, next) {
		rate := &types.ExchangeRate{
			AsOf:      next.LastUpdate,
			FetchedAt: fetchedAt,
			Base:      point.base,
			Target:    currencies.VES,
			RateType:  types.RateTypeMID,
			Source:    types.Source(point.quote.Source),
			Rate:      point.quote.Price,
		}

		if err := m.history.SaveExchangeRate(saveCtx, rate); err != nil {
			logger.Error(
				"unable to save exchange rate",
				"base", rate.Base,
				"source", rate.Source,
				"err", err,
			)
		}
	}
}

type historyPoint struct {
	base  types.Currency
	quote rates.Quote
}

// historyPoints returns the known quotes whose price or source changed
func historyPoints(prev, next rates.Snapshot) []historyPoint {
	candidates := []struct {
		base       types.Currency
		prev, next rates.Quote
	}{
		{currencies.USDT, prev.USDT, next.USDT},
		{currencies.USD, prev.BCV, next.BCV},
		{currencies.EUR, prev.Euro, next.Euro},
	}

	points := make([]historyPoint, 0, len(candidates))

	for _, c := range candidates {
		if c.next.Price <= 0 {
			continue
		}

		if c.next.Price == c.prev.Price && c.next.Source == c.prev.Source {
			continue
		}

		points = append(points, historyPoint{
			base:  c.base,
			quote: c.next,
		})
	}

	return points
}

// notifyChanges notifies the official rate moves, if a notifier is set
func (m *Monitor) notifyChanges(ctx context.Context, prev, next rates.Snapshot, logger *slog.Logger) {
	if m.notifier == nil {
		return
	}

	changes := notify.Changes(prev, next)
	if len(changes) == 0 {
		return
	}

	if err := m.notifier.Notify(ctx, changes); err != nil {
		logger.Warn("unable to deliver rate notification", "err", err)
	}
}

// Snapshot returns the current published snapshot
func (m *Monitor) Snapshot() rates.Snapshot {
	return m.store.Get()
}

// Offline returns true if the last refresh cycle failed for every source
func (m *Monitor) Offline() bool {
	return m.offline.Load()
}

// State returns the current phase of the refresh cycle
func (m *Monitor) State() rates.Status {
	status, _ := m.state.Load().(rates.Status)

	return status
}

// LastStatus returns the outcome of the last completed refresh cycle
func (m *Monitor) LastStatus() rates.Status {
	status, _ := m.lastStatus.Load().(rates.Status)

	return status
}

// Subscribe registers a callback for every published snapshot.
// The returned function cancels the subscription
func (m *Monitor) Subscribe(fn func(rates.Snapshot)) func() {
	return m.store.Subscribe(fn)
}

// Convert executes the conversion request against the current snapshot
func (m *Monitor) Convert(req convert.Request) convert.Result {
	return convert.Do(req, m.store.Get())
}

// scheduleRefresh schedules a new refresh
func (m *Monitor) scheduleRefresh(at time.Time, id xid.ID) {
	m.qMux.Lock()
	defer m.qMux.Unlock()

	m.q.Push(scheduledRefresh{
		at: at,
		id: id,
	})
}

// nextRefresh pops the next due refresh, as of the moment of calling
func (m *Monitor) nextRefresh() *scheduledRefresh {
	m.qMux.Lock()
	defer m.qMux.Unlock()

	// Check if anything is scheduled
	if m.q.Len() == 0 {
		return nil // the refresh is running
	}

	// Check if the top element is due
	if m.q.Index(0).at.After(m.clock()) {
		return nil // the next refresh is in the future
	}

	return m.q.PopFront()
}
