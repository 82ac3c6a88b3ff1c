package sql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of the pgx connection / pool / transaction API
// used by the queries
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Queries executes the storage statements against a DBTX
type Queries struct {
	db DBTX
}

// NewQueries creates a new Queries instance
func NewQueries(db DBTX) *Queries {
	return &Queries{
		db: db,
	}
}

// exchangeRateRow is a single exchange_rates row
type exchangeRateRow struct {
	Base      string
	Target    string
	Rate      pgtype.Numeric
	RateType  string
	Source    string
	AsOf      pgtype.Timestamptz
	FetchedAt pgtype.Timestamptz
	ID        int64
}

const saveExchangeRate = `
INSERT INTO exchange_rates (base, target, rate, rate_type, source, as_of, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (base, target, rate_type, source, as_of)
    DO UPDATE SET rate       = EXCLUDED.rate,
                  fetched_at = EXCLUDED.fetched_at
`

type saveExchangeRateParams struct {
	Base      string
	Target    string
	Rate      pgtype.Numeric
	RateType  string
	Source    string
	AsOf      pgtype.Timestamptz
	FetchedAt pgtype.Timestamptz
}

func (q *Queries) SaveExchangeRate(ctx context.Context, arg saveExchangeRateParams) error {
	_, err := q.db.Exec(
		ctx,
		saveExchangeRate,
		arg.Base,
		arg.Target,
		arg.Rate,
		arg.RateType,
		arg.Source,
		arg.AsOf,
		arg.FetchedAt,
	)

	return err
}

const rateAsOf = `
WITH latest AS (SELECT DISTINCT ON (target, source, rate_type) id,
                                                               base,
                                                               target,
                                                               rate,
                                                               rate_type,
                                                               source,
                                                               as_of,
                                                               fetched_at
                FROM exchange_rates
                WHERE base = $1
                  AND ($2::text IS NULL OR target = $2)
                  AND ($3::text IS NULL OR source = $3)
                  AND ($4::text IS NULL OR rate_type = $4)
                  AND as_of <= $5
                ORDER BY target, source, rate_type, as_of DESC, fetched_at DESC)
SELECT id,
       base,
       target,
       rate,
       rate_type,
       source,
       as_of,
       fetched_at,
       COUNT(*) OVER () AS total
FROM latest
ORDER BY target, source, rate_type
LIMIT $6 OFFSET $7
`

type rateAsOfParams struct {
	Base     string
	Target   pgtype.Text
	Source   pgtype.Text
	RateType pgtype.Text
	AsOf     pgtype.Timestamptz
	Limit    int32
	Offset   int64
}

type rateAsOfRow struct {
	exchangeRateRow
	Total int64
}

func (q *Queries) RateAsOf(ctx context.Context, arg rateAsOfParams) ([]rateAsOfRow, error) {
	rows, err := q.db.Query(
		ctx,
		rateAsOf,
		arg.Base,
		arg.Target,
		arg.Source,
		arg.RateType,
		arg.AsOf,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []rateAsOfRow

	for rows.Next() {
		var i rateAsOfRow
		if err = rows.Scan(
			&i.ID,
			&i.Base,
			&i.Target,
			&i.Rate,
			&i.RateType,
			&i.Source,
			&i.AsOf,
			&i.FetchedAt,
			&i.Total,
		); err != nil {
			return nil, err
		}

		items = append(items, i)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

const listSources = `
SELECT DISTINCT source
FROM exchange_rates
ORDER BY source
`

func (q *Queries) ListSources(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listSources)
}

const listCurrencies = `
SELECT base AS code
FROM exchange_rates
UNION
SELECT target
FROM exchange_rates
ORDER BY code
`

func (q *Queries) ListCurrencies(ctx context.Context) ([]string, error) {
	return q.listStrings(ctx, listCurrencies)
}

func (q *Queries) listStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	items, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("unable to collect rows: %w", err)
	}

	return items, nil
}

const loadSnapshot = `
SELECT payload
FROM snapshots
WHERE key = $1
`

func (q *Queries) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	var payload []byte

	err := q.db.QueryRow(ctx, loadSnapshot, key).Scan(&payload)

	return payload, err
}

const saveSnapshot = `
INSERT INTO snapshots (key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key)
    DO UPDATE SET payload    = EXCLUDED.payload,
                  updated_at = now()
`

func (q *Queries) SaveSnapshot(ctx context.Context, key string, payload []byte) error {
	_, err := q.db.Exec(ctx, saveSnapshot, key, payload)

	return err
}
