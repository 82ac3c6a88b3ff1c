package ingest

import (
	"context"

	"github.com/sig-0/vesmonitor/notify"
	"github.com/sig-0/vesmonitor/rates"
)

type (
	fetchValueDelegate func(context.Context) (float64, error)
	fetchRatesDelegate func(context.Context) (rates.OfficialRates, error)
	notifyDelegate     func(context.Context, []notify.Change) error
)

type mockValueSource struct {
	fetchFn fetchValueDelegate
	name    string
}

func (m *mockValueSource) Name() string {
	return m.name
}

func (m *mockValueSource) Fetch(ctx context.Context) (float64, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return 0, nil
}

type mockRatesSource struct {
	fetchFn fetchRatesDelegate
	name    string
}

func (m *mockRatesSource) Name() string {
	return m.name
}

func (m *mockRatesSource) Fetch(ctx context.Context) (rates.OfficialRates, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return rates.OfficialRates{}, nil
}

type mockNotifier struct {
	notifyFn notifyDelegate
}

func (m *mockNotifier) Notify(ctx context.Context, changes []notify.Change) error {
	if m.notifyFn != nil {
		return m.notifyFn(ctx, changes)
	}

	return nil
}

// valueOf creates a value source that always returns the given value
func valueOf(name string, value float64) *mockValueSource {
	return &mockValueSource{
		name: name,
		fetchFn: func(context.Context) (float64, error) {
			return value, nil
		},
	}
}

// failing creates a value source that always fails
func failing(name string, err error) *mockValueSource {
	return &mockValueSource{
		name: name,
		fetchFn: func(context.Context) (float64, error) {
			return 0, err
		},
	}
}

// officialOf creates a rates source that always returns the given rates
func officialOf(name string, official rates.OfficialRates) *mockRatesSource {
	return &mockRatesSource{
		name: name,
		fetchFn: func(context.Context) (rates.OfficialRates, error) {
			return official, nil
		},
	}
}

// awareValueOf creates a value source that honors the context
func awareValueOf(name string, value float64) *mockValueSource {
	return &mockValueSource{
		name: name,
		fetchFn: func(ctx context.Context) (float64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}

			return value, nil
		},
	}
}
