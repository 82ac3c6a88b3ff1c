package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/notify"
	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/memory"
	"github.com/sig-0/vesmonitor/storage/mock"
	"github.com/sig-0/vesmonitor/storage/types"
)

var (
	errSourceDown = errors.New("source down")

	testNow = time.Date(2026, time.January, 10, 12, 0, 30, 0, time.UTC)
)

// healthySources returns sources that all answer
func healthySources() Sources {
	return Sources{
		P2P: valueOf("p2p", 37.10),
		Official: officialOf("official", rates.OfficialRates{
			BCV: rates.Detailed(36.35, 0.97),
			EUR: rates.Flat(39.39),
		}),
		Fallback:  valueOf("fallback", 36.30),
		CrossRate: valueOf("cross", 1.10),
	}
}

// newTestMonitor creates a monitor with a fixed clock
func newTestMonitor(sources Sources, snapshots *mock.Storage, opts ...Option) *Monitor {
	m := New(sources, snapshots, opts...)
	m.clock = func() time.Time {
		return testNow
	}

	return m
}

func TestMonitor_New(t *testing.T) {
	t.Parallel()

	t.Run("default monitor", func(t *testing.T) {
		t.Parallel()

		m := New(Sources{}, &mock.Storage{})

		require.NotNil(t, m)

		assert.NotNil(t, m.logger)
		assert.Equal(t, DefaultInterval, m.interval)
		assert.Equal(t, time.Second, m.queryInterval)
		assert.Equal(t, rates.SnapshotKey, m.snapshotKey)
		assert.Equal(t, rates.DefaultSnapshot(), m.Snapshot())
		assert.Equal(t, rates.StatusIdle, m.State())
		assert.False(t, m.Offline())
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()

		m := New(
			Sources{},
			&mock.Storage{},
			WithInterval(time.Minute),
			WithQueryInterval(time.Millisecond),
			WithSnapshotKey("custom"),
			WithInterval(-time.Second),
		)

		assert.Equal(t, time.Minute, m.interval)
		assert.Equal(t, time.Millisecond, m.queryInterval)
		assert.Equal(t, "custom", m.snapshotKey)
	})
}

func TestMonitor_Load(t *testing.T) {
	t.Parallel()

	t.Run("no persisted snapshot", func(t *testing.T) {
		t.Parallel()

		m := New(Sources{}, &mock.Storage{})

		require.NoError(t, m.Load(context.Background()))
		assert.Equal(t, rates.DefaultSnapshot(), m.Snapshot())
	})

	t.Run("persisted snapshot", func(t *testing.T) {
		t.Parallel()

		persisted := rates.DefaultSnapshot()
		persisted.BCV.Price = 36

		var loadedKey string

		m := New(Sources{}, &mock.Storage{
			LoadSnapshotFn: func(_ context.Context, key string) (*rates.Snapshot, error) {
				loadedKey = key

				return &persisted, nil
			},
		})

		require.NoError(t, m.Load(context.Background()))

		assert.Equal(t, rates.SnapshotKey, loadedKey)
		assert.Equal(t, persisted, m.Snapshot())
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		m := New(Sources{}, &mock.Storage{
			LoadSnapshotFn: func(context.Context, string) (*rates.Snapshot, error) {
				return nil, errSourceDown
			},
		})

		assert.ErrorIs(t, m.Load(context.Background()), errSourceDown)
	})
}

func TestMonitor_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("all sources answer", func(t *testing.T) {
		t.Parallel()

		var (
			saved     []rates.Snapshot
			savedKeys []string
			history   = memory.NewStorage()
		)

		m := newTestMonitor(healthySources(), &mock.Storage{
			SaveSnapshotFn: func(_ context.Context, key string, snap rates.Snapshot) error {
				savedKeys = append(savedKeys, key)
				saved = append(saved, snap)

				return nil
			},
		}, WithHistory(history))

		status, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, rates.StatusSuccess, status)
		assert.Equal(t, rates.StatusSuccess, m.LastStatus())
		assert.Equal(t, rates.StatusIdle, m.State())
		assert.False(t, m.Offline())

		snap := m.Snapshot()

		assert.Equal(t, 37.10, snap.USDT.Price)
		assert.Equal(t, 36.35, snap.BCV.Price)
		assert.Equal(t, 0.97, snap.BCV.Change)
		assert.Equal(t, 39.39, snap.Euro.Price)
		assert.Equal(t, testNow, snap.LastUpdate)

		require.Len(t, saved, 1)
		assert.Equal(t, []string{rates.SnapshotKey}, savedKeys)
		assert.Equal(t, snap, saved[0])

		// Every quote is recorded
		list, err := history.ListCurrencies(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []types.Currency{currencies.EUR, currencies.USD, currencies.USDT, currencies.VES}, list)
	})

	t.Run("p2p failure keeps usdt", func(t *testing.T) {
		t.Parallel()

		sources := healthySources()
		sources.P2P = failing("p2p", errSourceDown)

		m := newTestMonitor(sources, &mock.Storage{})

		status, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, rates.StatusPartial, status)
		assert.Equal(t, rates.DefaultSnapshot().USDT, m.Snapshot().USDT)
		assert.Equal(t, 36.35, m.Snapshot().BCV.Price)
		assert.False(t, m.Offline())
	})

	t.Run("official failure falls back", func(t *testing.T) {
		t.Parallel()

		sources := healthySources()
		sources.Official = &mockRatesSource{
			name: "official",
			fetchFn: func(context.Context) (rates.OfficialRates, error) {
				return rates.OfficialRates{}, errSourceDown
			},
		}

		m := newTestMonitor(sources, &mock.Storage{})

		status, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, rates.StatusSuccess, status)
		assert.Equal(t, 36.30, m.Snapshot().BCV.Price)
		assert.Equal(t, rates.SourceOfficialFallback, m.Snapshot().BCV.Source)
		assert.InDelta(t, 36.30*1.10, m.Snapshot().Euro.Price, 1e-9)
	})

	t.Run("every source fails", func(t *testing.T) {
		t.Parallel()

		var saveCalled atomic.Bool

		persisted := rates.DefaultSnapshot()
		persisted.BCV.Price = 36

		m := newTestMonitor(Sources{
			P2P:       failing("p2p", errSourceDown),
			Fallback:  failing("fallback", errSourceDown),
			CrossRate: failing("cross", errSourceDown),
		}, &mock.Storage{
			LoadSnapshotFn: func(context.Context, string) (*rates.Snapshot, error) {
				return &persisted, nil
			},
			SaveSnapshotFn: func(context.Context, string, rates.Snapshot) error {
				saveCalled.Store(true)

				return nil
			},
		})

		require.NoError(t, m.Load(context.Background()))

		status, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, rates.StatusOffline, status)
		assert.True(t, m.Offline())
		assert.False(t, saveCalled.Load())
		assert.Equal(t, persisted, m.Snapshot())
	})

	t.Run("recovery clears the offline flag", func(t *testing.T) {
		t.Parallel()

		var up atomic.Bool

		m := newTestMonitor(Sources{
			P2P: &mockValueSource{
				name: "p2p",
				fetchFn: func(context.Context) (float64, error) {
					if !up.Load() {
						return 0, errSourceDown
					}

					return 37.10, nil
				},
			},
		}, &mock.Storage{})

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)
		require.True(t, m.Offline())

		up.Store(true)

		status, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, rates.StatusPartial, status)
		assert.False(t, m.Offline())
	})

	t.Run("caller cancellation does not abort the cycle", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m := newTestMonitor(Sources{
			P2P:       awareValueOf("p2p", 37.10),
			Fallback:  awareValueOf("fallback", 36.3),
			CrossRate: awareValueOf("cross", 1.1),
		}, &mock.Storage{})

		status, err := m.Refresh(ctx)
		require.NoError(t, err)

		assert.Equal(t, rates.StatusSuccess, status)
		assert.False(t, m.Offline())
		assert.Equal(t, 37.10, m.Snapshot().USDT.Price)
		assert.Equal(t, 36.3, m.Snapshot().BCV.Price)
	})

	t.Run("cancelled cycle leaves the state untouched", func(t *testing.T) {
		t.Parallel()

		var saveCalled atomic.Bool

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m := newTestMonitor(Sources{
			P2P:       awareValueOf("p2p", 37.10),
			Fallback:  awareValueOf("fallback", 36.3),
			CrossRate: awareValueOf("cross", 1.1),
		}, &mock.Storage{
			SaveSnapshotFn: func(context.Context, string, rates.Snapshot) error {
				saveCalled.Store(true)

				return nil
			},
		})

		status, err := m.refresh(ctx, xid.New())
		require.ErrorIs(t, err, context.Canceled)

		assert.Equal(t, rates.StatusIdle, status)
		assert.Equal(t, rates.StatusIdle, m.LastStatus())
		assert.False(t, m.Offline())
		assert.False(t, saveCalled.Load())
		assert.Equal(t, rates.DefaultSnapshot(), m.Snapshot())
	})

	t.Run("offline flip is published once", func(t *testing.T) {
		t.Parallel()

		var (
			up       atomic.Bool
			received []bool
		)

		m := newTestMonitor(Sources{
			P2P: &mockValueSource{
				name: "p2p",
				fetchFn: func(context.Context) (float64, error) {
					if !up.Load() {
						return 0, errSourceDown
					}

					return 37.10, nil
				},
			},
		}, &mock.Storage{})

		unsubscribe := m.Subscribe(func(rates.Snapshot) {
			received = append(received, m.Offline())
		})
		defer unsubscribe()

		for range 2 {
			status, err := m.Refresh(context.Background())
			require.NoError(t, err)
			require.Equal(t, rates.StatusOffline, status)
		}

		up.Store(true)

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []bool{true, false}, received)
	})

	t.Run("persist failure still publishes", func(t *testing.T) {
		t.Parallel()

		m := newTestMonitor(healthySources(), &mock.Storage{
			SaveSnapshotFn: func(context.Context, string, rates.Snapshot) error {
				return errSourceDown
			},
		})

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 37.10, m.Snapshot().USDT.Price)
	})

	t.Run("overlapping refresh is rejected", func(t *testing.T) {
		t.Parallel()

		var (
			started = make(chan struct{})
			release = make(chan struct{})
		)

		m := newTestMonitor(Sources{
			P2P: &mockValueSource{
				name: "p2p",
				fetchFn: func(context.Context) (float64, error) {
					close(started)
					<-release

					return 37.10, nil
				},
			},
		}, &mock.Storage{})

		errCh := make(chan error, 1)

		go func() {
			_, err := m.Refresh(context.Background())

			errCh <- err
		}()

		<-started

		assert.Equal(t, rates.StatusFetching, m.State())

		status, err := m.Refresh(context.Background())

		assert.ErrorIs(t, err, ErrRefreshInProgress)
		assert.Equal(t, rates.StatusFetching, status)

		close(release)

		require.NoError(t, <-errCh)
		assert.Equal(t, 37.10, m.Snapshot().USDT.Price)
	})

	t.Run("official changes are notified", func(t *testing.T) {
		t.Parallel()

		var notified []notify.Change

		persisted := rates.DefaultSnapshot()
		persisted.USDT.Price = 37
		persisted.BCV.Price = 36
		persisted.Euro.Price = 39.39

		m := newTestMonitor(healthySources(), &mock.Storage{
			LoadSnapshotFn: func(context.Context, string) (*rates.Snapshot, error) {
				return &persisted, nil
			},
		}, WithNotifier(&mockNotifier{
			notifyFn: func(_ context.Context, changes []notify.Change) error {
				notified = changes

				return nil
			},
		}))

		require.NoError(t, m.Load(context.Background()))

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)

		require.Len(t, notified, 1)
		assert.Equal(t, currencies.USD, notified[0].Currency)
		assert.Equal(t, notify.DirectionUp, notified[0].Direction)
	})

	t.Run("subscribers receive the snapshot", func(t *testing.T) {
		t.Parallel()

		var received []rates.Snapshot

		m := newTestMonitor(healthySources(), &mock.Storage{})

		cancel := m.Subscribe(func(snap rates.Snapshot) {
			received = append(received, snap)
		})
		defer cancel()

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)

		require.Len(t, received, 1)
		assert.Equal(t, m.Snapshot(), received[0])
	})

	t.Run("conversion uses the published snapshot", func(t *testing.T) {
		t.Parallel()

		m := newTestMonitor(healthySources(), &mock.Storage{})

		_, err := m.Refresh(context.Background())
		require.NoError(t, err)

		res := m.Convert(convert.Request{
			Amount: 100,
			From:   currencies.USDT,
			To:     currencies.USD,
		})

		assert.Equal(t, 102.06, res.Value)
	})
}

func TestMonitor_Start(t *testing.T) {
	t.Parallel()

	t.Run("ctx canceled", func(t *testing.T) {
		t.Parallel()

		var (
			m     = New(Sources{}, &mock.Storage{}, WithQueryInterval(10*time.Millisecond))
			errCh = make(chan error, 1)
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- m.Start(ctx)
		}()

		cancel()

		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("monitor did not shut down in time")
		}
	})

	t.Run("boot refresh and reschedule", func(t *testing.T) {
		t.Parallel()

		var (
			fetchCount atomic.Int32
			fetchDone  = make(chan struct{})
			errCh      = make(chan error, 1)
		)

		m := New(Sources{
			P2P: &mockValueSource{
				name: "p2p",
				fetchFn: func(context.Context) (float64, error) {
					if fetchCount.Add(1) == 2 {
						close(fetchDone)
					}

					return 37.10, nil
				},
			},
		}, &mock.Storage{},
			WithInterval(50*time.Millisecond),
			WithQueryInterval(10*time.Millisecond),
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- m.Start(ctx)
		}()

		select {
		case <-fetchDone:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for reschedule")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.GreaterOrEqual(t, fetchCount.Load(), int32(2))
		assert.Equal(t, 37.10, m.Snapshot().USDT.Price)
	})

	t.Run("offline cycles are rescheduled", func(t *testing.T) {
		t.Parallel()

		var (
			fetchCount atomic.Int32
			retryDone  = make(chan struct{})
			errCh      = make(chan error, 1)
		)

		m := New(Sources{
			P2P: &mockValueSource{
				name: "p2p",
				fetchFn: func(context.Context) (float64, error) {
					if fetchCount.Add(1) == 2 {
						close(retryDone)
					}

					return 0, errSourceDown
				},
			},
		}, &mock.Storage{},
			WithInterval(50*time.Millisecond),
			WithQueryInterval(10*time.Millisecond),
		)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			errCh <- m.Start(ctx)
		}()

		select {
		case <-retryDone:
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for retry")
		}

		cancel()
		require.NoError(t, <-errCh)

		assert.True(t, m.Offline())
	})
}

func TestGather(t *testing.T) {
	t.Parallel()

	t.Run("nil sources are skipped", func(t *testing.T) {
		t.Parallel()

		res := gather(context.Background(), Sources{}, New(Sources{}, &mock.Storage{}).logger)

		assert.True(t, res.Empty())
	})

	t.Run("failures map to unavailable", func(t *testing.T) {
		t.Parallel()

		res := gather(context.Background(), Sources{
			P2P:       failing("p2p", errSourceDown),
			Fallback:  valueOf("fallback", 0),
			CrossRate: valueOf("cross", 1.1),
			Scraper: &mockRatesSource{
				name: "scraper",
				fetchFn: func(context.Context) (rates.OfficialRates, error) {
					return rates.OfficialRates{}, errSourceDown
				},
			},
		}, New(Sources{}, &mock.Storage{}).logger)

		assert.Nil(t, res.P2P)
		assert.Nil(t, res.Fallback)
		assert.Nil(t, res.Scraped)
		assert.Nil(t, res.Official)

		require.NotNil(t, res.CrossRate)
		assert.Equal(t, 1.1, *res.CrossRate)
	})

	t.Run("sources run concurrently", func(t *testing.T) {
		t.Parallel()

		var (
			wg sync.WaitGroup

			allStarted = make(chan struct{})
		)

		wg.Add(3)

		go func() {
			wg.Wait()
			close(allStarted)
		}()

		// Every source waits for its siblings, which only works concurrently
		barrier := func(value float64) *mockValueSource {
			return &mockValueSource{
				name: "barrier",
				fetchFn: func(ctx context.Context) (float64, error) {
					wg.Done()

					select {
					case <-allStarted:
						return value, nil
					case <-time.After(5 * time.Second):
						return 0, errSourceDown
					}
				},
			}
		}

		res := gather(context.Background(), Sources{
			P2P:       barrier(37.10),
			Fallback:  barrier(36.35),
			CrossRate: barrier(1.1),
		}, New(Sources{}, &mock.Storage{}).logger)

		require.NotNil(t, res.P2P)
		require.NotNil(t, res.Fallback)
		require.NotNil(t, res.CrossRate)
	})
}

func TestHistoryPoints(t *testing.T) {
	t.Parallel()

	prev := rates.DefaultSnapshot()
	prev.USDT.Price = 37.10
	prev.USDT.Source = rates.SourceP2P
	prev.BCV.Price = 36
	prev.BCV.Source = rates.SourceOfficial

	next := prev
	next.BCV.Source = rates.SourceOfficialFallback
	next.Euro.Price = 39.39
	next.Euro.Source = rates.SourceEuroTriangulated

	points := historyPoints(prev, next)
	require.Len(t, points, 2)

	assert.Equal(t, currencies.USD, points[0].base)
	assert.Equal(t, rates.SourceOfficialFallback, points[0].quote.Source)
	assert.Equal(t, currencies.EUR, points[1].base)
}
