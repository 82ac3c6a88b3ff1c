package server

import (
	"context"
	"sync"

	"github.com/rs/xid"

	"github.com/sig-0/vesmonitor/convert"
	"github.com/sig-0/vesmonitor/rates"
)

type refreshDelegate func(context.Context) (rates.Status, error)

type mockMonitor struct {
	refreshFn refreshDelegate

	snapshot rates.Snapshot
	status   rates.Status
	offline  bool

	subscribers map[xid.ID]func(rates.Snapshot)
	subscribed  chan struct{}
	mux         sync.Mutex
}

func newMockMonitor(snap rates.Snapshot) *mockMonitor {
	return &mockMonitor{
		snapshot:    snap,
		status:      rates.StatusSuccess,
		subscribers: make(map[xid.ID]func(rates.Snapshot)),
		subscribed:  make(chan struct{}, 1),
	}
}

func (m *mockMonitor) Snapshot() rates.Snapshot {
	m.mux.Lock()
	defer m.mux.Unlock()

	return m.snapshot
}

func (m *mockMonitor) Offline() bool {
	m.mux.Lock()
	defer m.mux.Unlock()

	return m.offline
}

func (m *mockMonitor) LastStatus() rates.Status {
	m.mux.Lock()
	defer m.mux.Unlock()

	return m.status
}

// setOffline marks the last cycle as offline, or recovered
func (m *mockMonitor) setOffline(offline bool) {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.offline = offline

	m.status = rates.StatusSuccess
	if offline {
		m.status = rates.StatusOffline
	}
}

func (m *mockMonitor) Refresh(ctx context.Context) (rates.Status, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}

	return m.status, nil
}

func (m *mockMonitor) Convert(req convert.Request) convert.Result {
	return convert.Do(req, m.Snapshot())
}

func (m *mockMonitor) Subscribe(fn func(rates.Snapshot)) func() {
	id := xid.New()

	m.mux.Lock()
	m.subscribers[id] = fn
	m.mux.Unlock()

	select {
	case m.subscribed <- struct{}{}:
	default:
	}

	return func() {
		m.mux.Lock()
		delete(m.subscribers, id)
		m.mux.Unlock()
	}
}

// publish replaces the snapshot and notifies the subscribers
func (m *mockMonitor) publish(snap rates.Snapshot) {
	m.mux.Lock()

	m.snapshot = snap

	callbacks := make([]func(rates.Snapshot), 0, len(m.subscribers))
	for _, cb := range m.subscribers {
		callbacks = append(callbacks, cb)
	}

	m.mux.Unlock()

	for _, cb := range callbacks {
		cb(snap)
	}
}
