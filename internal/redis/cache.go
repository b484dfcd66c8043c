package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"booking/internal/domain"
)

// CacheStore handles entity and response caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	OrderCacheTTL    = 30 * time.Second // status moves during a trip
	ResponseCacheTTL = 24 * time.Hour   // idempotent replay window
)

// Key prefixes
const (
	orderCachePrefix    = "cache:order:"
	responseCachePrefix = "idempotency:"
)

// GetOrder retrieves an order from cache. A miss returns (nil, nil).
func (s *CacheStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	data, err := s.client.Get(ctx, orderCachePrefix+orderID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SetOrder stores an order in cache.
func (s *CacheStore) SetOrder(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, orderCachePrefix+order.ID, data, OrderCacheTTL).Err()
}

// InvalidateOrder removes an order from cache.
func (s *CacheStore) InvalidateOrder(ctx context.Context, orderID string) error {
	return s.client.Del(ctx, orderCachePrefix+orderID).Err()
}

// GetResponse returns a cached HTTP response body for key. A miss returns (nil, nil).
func (s *CacheStore) GetResponse(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, responseCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// SetResponse caches an HTTP response body for key.
func (s *CacheStore) SetResponse(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, responseCachePrefix+key, data, ResponseCacheTTL).Err()
}
