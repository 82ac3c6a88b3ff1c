package sql

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/vesmonitor/provider/currencies"
	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
	"github.com/sig-0/vesmonitor/storage/types"
)

type (
	execDelegate     func(context.Context, string, ...any) (pgconn.CommandTag, error)
	queryDelegate    func(context.Context, string, ...any) (pgx.Rows, error)
	queryRowDelegate func(context.Context, string, ...any) pgx.Row
)

type mockDB struct {
	execFn     execDelegate
	queryFn    queryDelegate
	queryRowFn queryRowDelegate
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, args...)
	}

	return pgconn.CommandTag{}, nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}

	return &mockRows{}, nil
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}

	return &mockRow{err: pgx.ErrNoRows}
}

// mockRow is a single static row
type mockRow struct {
	err    error
	values []any
}

func (r *mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return assign(r.values, dest)
}

// mockRows is a static result set
type mockRows struct {
	rows [][]any
	idx  int
}

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return nil }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}

	r.idx++

	return true
}

func (r *mockRows) Scan(dest ...any) error {
	return assign(r.rows[r.idx-1], dest)
}

func (r *mockRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(values), len(dest))
	}

	for i := range values {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(values[i]))
	}

	return nil
}

func TestStorage_Snapshots(t *testing.T) {
	t.Parallel()

	t.Run("missing snapshot", func(t *testing.T) {
		t.Parallel()

		s := NewStorage(NewQueries(&mockDB{}))

		snap, err := s.LoadSnapshot(context.Background(), rates.SnapshotKey)
		require.NoError(t, err)

		assert.Nil(t, snap)
	})

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		var (
			stored []byte
			db     = &mockDB{}
		)

		db.execFn = func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			require.Len(t, args, 2)
			assert.Equal(t, rates.SnapshotKey, args[0])

			stored, _ = args[1].([]byte)

			return pgconn.NewCommandTag("INSERT 0 1"), nil
		}

		db.queryRowFn = func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, []any{rates.SnapshotKey}, args)

			return &mockRow{values: []any{stored}}
		}

		var (
			s        = NewStorage(NewQueries(db))
			expected = rates.DefaultSnapshot()
		)

		expected.Euro.Price = 39.39
		expected.LastUpdate = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

		require.NoError(t, s.SaveSnapshot(context.Background(), rates.SnapshotKey, expected))

		snap, err := s.LoadSnapshot(context.Background(), rates.SnapshotKey)
		require.NoError(t, err)
		require.NotNil(t, snap)

		assert.Equal(t, expected, *snap)
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()

		var (
			dbErr = errors.New("connection reset")
			s     = NewStorage(NewQueries(&mockDB{
				queryRowFn: func(context.Context, string, ...any) pgx.Row {
					return &mockRow{err: dbErr}
				},
			}))
		)

		_, err := s.LoadSnapshot(context.Background(), rates.SnapshotKey)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("invalid key", func(t *testing.T) {
		t.Parallel()

		s := NewStorage(NewQueries(&mockDB{}))

		assert.ErrorIs(t, s.SaveSnapshot(context.Background(), "", rates.DefaultSnapshot()), storage.ErrInvalidKey)
	})
}

func TestStorage_SaveExchangeRate(t *testing.T) {
	t.Parallel()

	var (
		captured []any
		asOf     = time.Date(2026, time.January, 10, 8, 0, 0, 0, time.FixedZone("VET", -4*3600))
	)

	s := NewStorage(NewQueries(&mockDB{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			captured = args

			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}))

	require.NoError(t, s.SaveExchangeRate(context.Background(), &types.ExchangeRate{
		AsOf:      asOf,
		FetchedAt: asOf,
		Base:      currencies.USD,
		Target:    currencies.VES,
		RateType:  types.RateTypeMID,
		Source:    rates.SourceOfficial,
		Rate:      36.35,
	}))

	require.Len(t, captured, 7)

	assert.Equal(t, "USD", captured[0])
	assert.Equal(t, "VES", captured[1])
	assert.Equal(t, 36.35, numericToFloat(captured[2].(pgtype.Numeric)))
	assert.Equal(t, "MID", captured[3])
	assert.Equal(t, rates.SourceOfficial, captured[4])
	assert.Equal(t, asOf.UTC(), captured[5].(pgtype.Timestamptz).Time)
}

func TestStorage_RateAsOf(t *testing.T) {
	t.Parallel()

	var (
		asOf   = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
		target = currencies.VES
	)

	s := NewStorage(NewQueries(&mockDB{
		queryFn: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			require.Len(t, args, 7)

			assert.Equal(t, "USD", args[0])
			assert.Equal(t, pgtype.Text{String: "VES", Valid: true}, args[1])
			assert.Equal(t, pgtype.Text{}, args[2])
			assert.Equal(t, int32(maxLimit), args[5])
			assert.Equal(t, int64(0), args[6])

			return &mockRows{
				rows: [][]any{
					{
						int64(1),
						"USD",
						"VES",
						floatToNumeric(36.35),
						"MID",
						rates.SourceOfficial,
						timeToTimestamptz(asOf),
						timeToTimestamptz(asOf),
						int64(3),
					},
				},
			}, nil
		},
	}))

	page, err := s.RateAsOf(context.Background(), &types.RateQuery{
		Base:   currencies.USD,
		Target: &target,
		Limit:  10_000,
		Offset: -1,
	}, asOf)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 36.35, page.Results[0].Rate)
	assert.Equal(t, types.Source(rates.SourceOfficial), page.Results[0].Source)
	assert.Equal(t, asOf, page.Results[0].AsOf)
}

func TestStorage_Lists(t *testing.T) {
	t.Parallel()

	s := NewStorage(NewQueries(&mockDB{
		queryFn: func(context.Context, string, ...any) (pgx.Rows, error) {
			return &mockRows{
				rows: [][]any{{"EUR"}, {"USD"}, {"VES"}},
			}, nil
		},
	}))

	list, err := s.ListCurrencies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []types.Currency{"EUR", "USD", "VES"}, list)

	empty := NewStorage(NewQueries(&mockDB{}))

	sources, err := empty.ListSources(context.Background())
	require.NoError(t, err)

	assert.Nil(t, sources)
}

func TestNumericConversion(t *testing.T) {
	t.Parallel()

	for _, value := range []float64{0, 1, 36.35, 39.3912, 1234.5678, 0.0001} {
		t.Run(fmt.Sprintf("%g", value), func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, value, numericToFloat(floatToNumeric(value)), 1e-9)
		})
	}

	t.Run("rounds to 4 decimals", func(t *testing.T) {
		t.Parallel()

		assert.InDelta(t, 36.3535, numericToFloat(floatToNumeric(36.35349)), 1e-9)
	})
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	names, err := Migrations()
	require.NoError(t, err)

	assert.Equal(t, []string{"001_exchange_rates.sql", "002_snapshots.sql"}, names)
}
