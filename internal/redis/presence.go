package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ridebid/internal/domain"
)

func (k GeoKey) presenceKey() string {
	return fmt.Sprintf("drivers:presence:%s:%s", k.ServiceID, k.VehicleType)
}

// PresenceStore tracks live driver sessions in per-(service, vehicle)
// geo sets. Members are session handles, not driver IDs: the same driver
// reconnecting gets a fresh handle and the old one simply goes stale.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// Update stores a driver session's position using GEOADD.
func (s *PresenceStore) Update(ctx context.Context, key GeoKey, sessionID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, key.presenceKey(), &redis.GeoLocation{
		Name:      sessionID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// Remove drops a driver session from the presence set.
func (s *PresenceStore) Remove(ctx context.Context, key GeoKey, sessionID string) error {
	return s.client.ZRem(ctx, key.presenceKey(), sessionID).Err()
}

// FindNearby returns up to limit driver sessions within radiusKm,
// nearest first.
func (s *PresenceStore) FindNearby(ctx context.Context, key GeoKey, lat, lng, radiusKm float64, limit int) ([]domain.DriverPresence, error) {
	results, err := s.client.GeoRadius(ctx, key.presenceKey(), lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
		Count:     limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.DriverPresence, 0, len(results))
	for _, r := range results {
		sessions = append(sessions, domain.DriverPresence{
			SessionID: r.Name,
			Lat:       r.Latitude,
			Lng:       r.Longitude,
		})
	}

	return sessions, nil
}
