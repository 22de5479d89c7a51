package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ridebid/internal/domain"
)

// RequestCacheTTL is short because request status changes quickly while
// bidding is open.
const RequestCacheTTL = 10 * time.Second

const requestCachePrefix = "cache:request:"

// CacheStore handles request caching in Redis. It fronts GetByID reads;
// every mutation path invalidates the entry.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetRequest retrieves a request from cache. Returns (nil, nil) on a miss.
func (s *CacheStore) GetRequest(ctx context.Context, requestID string) (*domain.RideRequest, error) {
	data, err := s.client.Get(ctx, requestCachePrefix+requestID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var req domain.RideRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// SetRequest stores a request in cache.
func (s *CacheStore) SetRequest(ctx context.Context, req *domain.RideRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, requestCachePrefix+req.ID, data, RequestCacheTTL).Err()
}

// InvalidateRequest removes a request from cache.
func (s *CacheStore) InvalidateRequest(ctx context.Context, requestID string) error {
	return s.client.Del(ctx, requestCachePrefix+requestID).Err()
}
