package redis

import (
	"context"
	"time"

	"ridebid/internal/domain"
)

// RequestGeoIndexInterface defines the interface for the request geo index.
type RequestGeoIndexInterface interface {
	Add(ctx context.Context, key GeoKey, requestID string, lat, lng float64) error
	Remove(ctx context.Context, key GeoKey, requestID string) error
	Search(ctx context.Context, key GeoKey, lat, lng, radiusKm float64, limit int) ([]GeoEntry, error)
}

// PresenceStoreInterface defines the interface for driver presence tracking.
type PresenceStoreInterface interface {
	Update(ctx context.Context, key GeoKey, sessionID string, lat, lng float64) error
	Remove(ctx context.Context, key GeoKey, sessionID string) error
	FindNearby(ctx context.Context, key GeoKey, lat, lng, radiusKm float64, limit int) ([]domain.DriverPresence, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRequestLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
	ReleaseRequestLock(ctx context.Context, requestID string) error
}

// PublisherInterface defines the interface for event fan-out.
type PublisherInterface interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// Ensure concrete types implement interfaces.
var (
	_ RequestGeoIndexInterface = (*RequestGeoIndex)(nil)
	_ PresenceStoreInterface   = (*PresenceStore)(nil)
	_ LockStoreInterface       = (*LockStore)(nil)
	_ PublisherInterface       = (*Publisher)(nil)
)
