// Package redis implements a snapshot store backed by Redis
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sig-0/vesmonitor/rates"
	"github.com/sig-0/vesmonitor/storage"
)

// DefaultPrefix namespaces the snapshot keys
const DefaultPrefix = "vesmonitor:"

// Storage persists each snapshot as a JSON string value
type Storage struct {
	client goredis.Cmdable
	prefix string
}

// NewStorage creates a new Redis snapshot store on top of an existing client
func NewStorage(client goredis.Cmdable, prefix string) *Storage {
	return &Storage{
		client: client,
		prefix: prefix,
	}
}

// Connect creates a new Redis client from the given address or redis:// URL,
// and verifies the connection
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr: addr,
	}

	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("unable to parse redis URL: %w", err)
		}

		opts = parsed
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return client, nil
}

func (s *Storage) LoadSnapshot(ctx context.Context, key string) (*rates.Snapshot, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("unable to get snapshot: %w", err)
	}

	var snap rates.Snapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unable to decode snapshot: %w", err)
	}

	return &snap, nil
}

func (s *Storage) SaveSnapshot(ctx context.Context, key string, snap rates.Snapshot) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("unable to encode snapshot: %w", err)
	}

	if err = s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("unable to set snapshot: %w", err)
	}

	return nil
}
