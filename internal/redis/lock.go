package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// Acquire attempts to take the lock named key for ttl.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
}

// Release releases the lock named key.
func (s *LockStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, "lock:"+key).Err()
}
