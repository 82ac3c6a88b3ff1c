package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
	"github.com/sig-0/vesmonitor/storage/types"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type key struct {
	base, target, source, rateType string
	asOf                           int64 // unix nanos
}

// bucket groups data points that compete for the "as of" result
type bucket struct {
	target, source, rateType string
}

// Storage is an in-memory snapshot and history storage
type Storage struct {
	data      map[key]types.ExchangeRate
	snapshots map[string]rates.Snapshot

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data:      make(map[key]types.ExchangeRate),
		snapshots: make(map[string]rates.Snapshot),
	}
}

func (s *Storage) LoadSnapshot(_ context.Context, k string) (*rates.Snapshot, error) {
	if err := storage.ValidateKey(k); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[k]
	if !ok {
		return nil, nil
	}

	return &snap, nil
}

func (s *Storage) SaveSnapshot(_ context.Context, k string, snap rates.Snapshot) error {
	if err := storage.ValidateKey(k); err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshots[k] = snap
	s.mu.Unlock()

	return nil
}

func (s *Storage) SaveExchangeRate(_ context.Context, r *types.ExchangeRate) error {
	elem := *r
	elem.AsOf = elem.AsOf.UTC()
	elem.FetchedAt = elem.FetchedAt.UTC()

	k := key{
		base:     elem.Base.String(),
		target:   elem.Target.String(),
		source:   elem.Source.String(),
		rateType: elem.RateType.String(),
		asOf:     elem.AsOf.UnixNano(),
	}

	s.mu.Lock()
	s.data[k] = elem // key is unique
	s.mu.Unlock()

	return nil
}

func (s *Storage) RateAsOf(
	_ context.Context,
	query *types.RateQuery,
	asOf time.Time,
) (*types.Page[*types.ExchangeRate], error) {
	cutoff := asOf.UTC()

	s.mu.RLock()

	latest := make(map[bucket]types.ExchangeRate)

	for _, v := range s.data {
		if !matches(query, v) || v.AsOf.After(cutoff) {
			continue
		}

		b := bucket{
			target:   v.Target.String(),
			source:   v.Source.String(),
			rateType: v.RateType.String(),
		}

		cur, ok := latest[b]
		if !ok ||
			v.AsOf.After(cur.AsOf) ||
			(v.AsOf.Equal(cur.AsOf) && v.FetchedAt.After(cur.FetchedAt)) {
			latest[b] = v
		}
	}

	s.mu.RUnlock()

	out := make([]*types.ExchangeRate, 0, len(latest))
	for _, v := range latest {
		out = append(out, &v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}

		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}

		return out[i].RateType < out[j].RateType
	})

	return paginate(out, query.Offset, query.Limit), nil
}

// matches checks if the data point satisfies the query filters
func matches(query *types.RateQuery, v types.ExchangeRate) bool {
	if v.Base != query.Base {
		return false
	}

	if query.Target != nil && v.Target != *query.Target {
		return false
	}

	if query.Source != nil && v.Source != *query.Source {
		return false
	}

	if query.RateType != nil && v.RateType != *query.RateType {
		return false
	}

	return true
}

// paginate cuts the requested page out of the sorted results
func paginate(out []*types.ExchangeRate, offset int64, limit int32) *types.Page[*types.ExchangeRate] {
	total := int64(len(out))

	if limit <= 0 {
		limit = defaultLimit
	}

	limit = min(limit, maxLimit)

	if total == 0 || offset >= total {
		return &types.Page[*types.ExchangeRate]{
			Results: nil,
			Total:   total,
		}
	}

	end := min(offset+int64(limit), total)

	return &types.Page[*types.ExchangeRate]{
		Results: out[offset:end],
		Total:   total,
	}
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[types.Source]struct{})

	for _, v := range s.data {
		seen[v.Source] = struct{}{}
	}

	s.mu.RUnlock()

	return sortedKeys(seen), nil
}

func (s *Storage) ListCurrencies(_ context.Context) ([]types.Currency, error) {
	s.mu.RLock()

	seen := make(map[types.Currency]struct{})

	for _, v := range s.data {
		seen[v.Base] = struct{}{}
		seen[v.Target] = struct{}{}
	}

	s.mu.RUnlock()

	return sortedKeys(seen), nil
}

func sortedKeys[T ~string](seen map[T]struct{}) []T {
	out := make([]T, 0, len(seen))

	for v := range seen {
		out = append(out, v)
	}

	slices.Sort(out)

	return out
}
