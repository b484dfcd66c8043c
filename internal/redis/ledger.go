package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// LedgerStore keeps client-side ledger documents as whole values under a
// single key each. Values never expire.
type LedgerStore struct {
	client *redis.Client
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(client *redis.Client) *LedgerStore {
	return &LedgerStore{client: client}
}

// Load returns the raw document stored under key, or nil if none exists.
func (s *LedgerStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Save replaces the document stored under key.
func (s *LedgerStore) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, 0).Err()
}
