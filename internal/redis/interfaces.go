package redis

import (
	"context"
	"time"

	"booking/internal/domain"
)

// OrderCacheInterface defines the read-through order cache.
type OrderCacheInterface interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	SetOrder(ctx context.Context, order *domain.Order) error
	InvalidateOrder(ctx context.Context, orderID string) error
}

// ResponseCacheInterface defines the idempotent response cache.
type ResponseCacheInterface interface {
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// LedgerStoreInterface defines whole-document ledger storage.
type LedgerStoreInterface interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Ensure concrete types implement interfaces.
var (
	_ OrderCacheInterface    = (*CacheStore)(nil)
	_ ResponseCacheInterface = (*CacheStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ LedgerStoreInterface   = (*LedgerStore)(nil)
)
