package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. Bid and status
// mutations serialize on a per-request lock so read-modify-write
// sequences never interleave.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRequestLock attempts to acquire a lock for the given request.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireRequestLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:request:%s", requestID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseRequestLock releases the lock for the given request.
func (s *LockStore) ReleaseRequestLock(ctx context.Context, requestID string) error {
	key := fmt.Sprintf("lock:request:%s", requestID)

	return s.client.Del(ctx, key).Err()
}
