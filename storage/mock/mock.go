package mock

import (
	"context"
	"time"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage/types"
)

type (
	LoadSnapshotDelegate     func(context.Context, string) (*rates.Snapshot, error)
	SaveSnapshotDelegate     func(context.Context, string, rates.Snapshot) error
	SaveExchangeRateDelegate func(context.Context, *types.ExchangeRate) error
	RateAsOfDelegate         func(context.Context, *types.RateQuery, time.Time) (*types.Page[*types.ExchangeRate], error)
	ListSourcesDelegate      func(context.Context) ([]types.Source, error)
	ListCurrenciesDelegate   func(context.Context) ([]types.Currency, error)
)

type Storage struct {
	LoadSnapshotFn     LoadSnapshotDelegate
	SaveSnapshotFn     SaveSnapshotDelegate
	SaveExchangeRateFn SaveExchangeRateDelegate
	RateAsOfFn         RateAsOfDelegate
	ListSourcesFn      ListSourcesDelegate
	ListCurrenciesFn   ListCurrenciesDelegate
}

func (m *Storage) LoadSnapshot(ctx context.Context, key string) (*rates.Snapshot, error) {
	if m.LoadSnapshotFn != nil {
		return m.LoadSnapshotFn(ctx, key)
	}

	return nil, nil
}

func (m *Storage) SaveSnapshot(ctx context.Context, key string, snap rates.Snapshot) error {
	if m.SaveSnapshotFn != nil {
		return m.SaveSnapshotFn(ctx, key, snap)
	}

	return nil
}

func (m *Storage) SaveExchangeRate(ctx context.Context, rate *types.ExchangeRate) error {
	if m.SaveExchangeRateFn != nil {
		return m.SaveExchangeRateFn(ctx, rate)
	}

	return nil
}

func (m *Storage) RateAsOf(
	ctx context.Context,
	query *types.RateQuery,
	at time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	if m.RateAsOfFn != nil {
		return m.RateAsOfFn(ctx, query, at)
	}

	return nil, nil
}

func (m *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	if m.ListSourcesFn != nil {
		return m.ListSourcesFn(ctx)
	}

	return nil, nil
}

func (m *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	if m.ListCurrenciesFn != nil {
		return m.ListCurrenciesFn(ctx)
	}

	return nil, nil
}
