package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
	"github.com/sig-0/vesmonitor/storage/types"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type Storage struct {
	queries *Queries
}

func NewStorage(queries *Queries) *Storage {
	return &Storage{
		queries: queries,
	}
}

func (s *Storage) LoadSnapshot(ctx context.Context, key string) (*rates.Snapshot, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	payload, err := s.queries.LoadSnapshot(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // valid case
		}

		return nil, fmt.Errorf("unable to fetch snapshot: %w", err)
	}

	var snap rates.Snapshot
	if err = json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unable to decode snapshot: %w", err)
	}

	return &snap, nil
}

func (s *Storage) SaveSnapshot(ctx context.Context, key string, snap rates.Snapshot) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("unable to encode snapshot: %w", err)
	}

	if err = s.queries.SaveSnapshot(ctx, key, payload); err != nil {
		return fmt.Errorf("unable to save snapshot: %w", err)
	}

	return nil
}

func (s *Storage) SaveExchangeRate(
	ctx context.Context,
	rate *types.ExchangeRate,
) error {
	arg := saveExchangeRateParams{
		Base:      rate.Base.String(),
		Target:    rate.Target.String(),
		Rate:      floatToNumeric(rate.Rate),
		RateType:  rate.RateType.String(),
		Source:    rate.Source.String(),
		AsOf:      timeToTimestamptz(rate.AsOf),
		FetchedAt: timeToTimestamptz(rate.FetchedAt),
	}

	if err := s.queries.SaveExchangeRate(ctx, arg); err != nil {
		return fmt.Errorf("unable to save exchange rate: %w", err)
	}

	return nil
}

func (s *Storage) RateAsOf(
	ctx context.Context,
	query *types.RateQuery,
	t time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	arg := rateAsOfParams{
		Base:     query.Base.String(),
		Target:   optionalText(query.Target),
		Source:   optionalText(query.Source),
		RateType: optionalText(query.RateType),
		AsOf:     timeToTimestamptz(t),
		Limit:    min(limit, maxLimit),
		Offset:   max(query.Offset, 0),
	}

	results, err := s.queries.RateAsOf(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}

	if len(results) == 0 {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   0,
		}, nil // valid case
	}

	items := make([]*types.ExchangeRate, 0, len(results))

	for _, result := range results {
		if rate := parseExchangeRate(result.exchangeRateRow); rate != nil {
			items = append(items, rate)
		}
	}

	return &types.Page[*types.ExchangeRate]{
		Results: items,
		Total:   results[0].Total,
	}, nil
}

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	results, err := s.queries.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	return convertAll[types.Source](results), nil
}

func (s *Storage) ListCurrencies(ctx context.Context) ([]types.Currency, error) {
	results, err := s.queries.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch currencies: %w", err)
	}

	return convertAll[types.Currency](results), nil
}

func convertAll[T ~string](values []string) []T {
	if len(values) == 0 {
		return nil
	}

	out := make([]T, 0, len(values))

	for _, v := range values {
		out = append(out, T(v))
	}

	return out
}

// parseExchangeRate parses the postgres exchange rate to the common Go type
func parseExchangeRate(row exchangeRateRow) *types.ExchangeRate {
	if !row.Rate.Valid || row.Rate.Int == nil {
		return nil
	}

	return &types.ExchangeRate{
		Base:      types.Currency(row.Base),
		Target:    types.Currency(row.Target),
		Rate:      numericToFloat(row.Rate),
		RateType:  types.RateType(row.RateType),
		Source:    types.Source(row.Source),
		AsOf:      timestamptzToTime(row.AsOf),
		FetchedAt: timestamptzToTime(row.FetchedAt),
	}
}

// optionalText converts an optional filter into a nullable postgres text
func optionalText[T ~string](value *T) pgtype.Text {
	if value == nil {
		return pgtype.Text{}
	}

	return pgtype.Text{
		String: string(*value),
		Valid:  true,
	}
}

// floatToNumeric converts the float value to postgres numeric,
// rounded to 4 decimal places
func floatToNumeric(value float64) pgtype.Numeric {
	i := int64(math.Round(value * 1e4))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   -4,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	switch {
	case value.Exp > 0:
		f *= math.Pow10(int(value.Exp))
	case value.Exp < 0:
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// timeToTimestamptz converts the time value to postgres timestamp
func timeToTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestamptzToTime converts the postgres timestamp value to time
func timestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time.UTC()
}
