package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// GeoKey partitions the geo index by service and vehicle class.
type GeoKey struct {
	ServiceID   string
	VehicleType string
}

func (k GeoKey) requestKey() string {
	return fmt.Sprintf("requests:locations:%s:%s", k.ServiceID, k.VehicleType)
}

// GeoEntry is one indexed member with its coordinate.
type GeoEntry struct {
	MemberID string
	Lat      float64
	Lng      float64
}

// RequestGeoIndex keeps pickup coordinates of biddable requests in Redis
// geo sets so drivers can discover nearby work. It is a derived index:
// callers must re-check the authoritative record status on read.
type RequestGeoIndex struct {
	client *redis.Client
}

// NewRequestGeoIndex creates a new RequestGeoIndex.
func NewRequestGeoIndex(client *redis.Client) *RequestGeoIndex {
	return &RequestGeoIndex{client: client}
}

// Add inserts a request's pickup coordinate using GEOADD.
func (s *RequestGeoIndex) Add(ctx context.Context, key GeoKey, requestID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, key.requestKey(), &redis.GeoLocation{
		Name:      requestID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// Remove drops a request from the geo index.
func (s *RequestGeoIndex) Remove(ctx context.Context, key GeoKey, requestID string) error {
	return s.client.ZRem(ctx, key.requestKey(), requestID).Err()
}

// Search returns up to limit members within radiusKm of the coordinate,
// nearest first.
func (s *RequestGeoIndex) Search(ctx context.Context, key GeoKey, lat, lng, radiusKm float64, limit int) ([]GeoEntry, error) {
	results, err := s.client.GeoRadius(ctx, key.requestKey(), lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
		Count:     limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]GeoEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, GeoEntry{
			MemberID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return entries, nil
}
