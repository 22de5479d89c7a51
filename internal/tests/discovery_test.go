package tests

import (
	"context"
	"errors"
	"testing"

	"ridebid/internal/domain"
	"ridebid/internal/redis"
	"ridebid/internal/service"
)

func TestFindRequestsNearDriverFiltersStaleEntries(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()

	open := seedRequest(f, "req-open", domain.StatusBidding)
	stale := seedRequest(f, "req-stale", domain.StatusRideCanceled)

	// Both are in the geo index; the removal of the canceled one was lost.
	_ = f.geo.Add(ctx, carKey(), open.ID, open.PickupLat, open.PickupLng)
	_ = f.geo.Add(ctx, carKey(), stale.ID, stale.PickupLat, stale.PickupLng)

	results, err := f.requests.FindRequestsNearDriver(ctx, "ride", "car", 48.857, 2.353)
	if err != nil {
		t.Fatalf("FindRequestsNearDriver failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 request, got %d", len(results))
	}
	if results[0].ID != "req-open" {
		t.Errorf("expected req-open, got %s", results[0].ID)
	}
}

func TestFindRequestsNearDriverEmptyIndex(t *testing.T) {
	f := newFixture(matchingConfig())

	results, err := f.requests.FindRequestsNearDriver(context.Background(), "ride", "car", 48.857, 2.353)
	if err != nil {
		t.Fatalf("FindRequestsNearDriver failed: %v", err)
	}
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Errorf("expected no requests, got %d", len(results))
	}
}

func TestFindRequestsNearDriverPartitionedByVehicleType(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()

	carReq := seedRequest(f, "req-car", domain.StatusBidding)
	_ = f.geo.Add(ctx, carKey(), carReq.ID, carReq.PickupLat, carReq.PickupLng)

	bikeReq := seedRequest(f, "req-bike", domain.StatusBidding)
	bikeReq.VehicleType = "bike"
	f.repo.AddRequest(bikeReq)
	_ = f.geo.Add(ctx, redis.GeoKey{ServiceID: "ride", VehicleType: "bike"}, bikeReq.ID, bikeReq.PickupLat, bikeReq.PickupLng)

	results, err := f.requests.FindRequestsNearDriver(ctx, "ride", "car", 48.857, 2.353)
	if err != nil {
		t.Fatalf("FindRequestsNearDriver failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "req-car" {
		t.Errorf("expected only the car request, got %v", results)
	}
}

func TestDiscoverNearbyDriversHonorsLimit(t *testing.T) {
	cfg := matchingConfig()
	cfg.DriverSearchLimit = 2
	f := newFixture(cfg)
	ctx := context.Background()

	_ = f.presence.Update(ctx, carKey(), "session-1", 48.857, 2.353)
	_ = f.presence.Update(ctx, carKey(), "session-2", 48.858, 2.354)
	_ = f.presence.Update(ctx, carKey(), "session-3", 48.859, 2.355)

	sessions, err := f.requests.DiscoverNearbyDrivers(ctx, "ride", "car", 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("DiscoverNearbyDrivers failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestUpdateDriverPresence(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()

	if err := f.requests.UpdateDriverPresence(ctx, "ride", "car", "session-1", 48.857, 2.353); err != nil {
		t.Fatalf("UpdateDriverPresence failed: %v", err)
	}

	sessions, err := f.requests.DiscoverNearbyDrivers(ctx, "ride", "car", 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("DiscoverNearbyDrivers failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != "session-1" {
		t.Errorf("expected session-1 present, got %v", sessions)
	}
}

func TestUpdateDriverPresenceValidatesInput(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()

	if err := f.requests.UpdateDriverPresence(ctx, "ride", "car", "", 48.857, 2.353); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Errorf("expected ErrInvalidDriverID, got %v", err)
	}
	if err := f.requests.UpdateDriverPresence(ctx, "ride", "car", "session-1", 95, 2.353); !errors.Is(err, service.ErrInvalidPickupLocation) {
		t.Errorf("expected ErrInvalidPickupLocation, got %v", err)
	}
}

func TestRelayMessagePublishesToRequestTopic(t *testing.T) {
	f := newFixture(matchingConfig())

	if err := f.requests.RelayMessage(context.Background(), "req-1", "rider-1", "Alice", "where are you?", "requester"); err != nil {
		t.Fatalf("RelayMessage failed: %v", err)
	}

	events := f.publisher.EventsNamed(redis.EventNewMessage)
	if len(events) != 1 {
		t.Fatalf("expected 1 newMessage event, got %d", len(events))
	}
	if events[0].Topic != redis.RequestTopic("req-1") {
		t.Errorf("expected request topic, got %s", events[0].Topic)
	}
}

func TestRelayMessageSurfacesPublishError(t *testing.T) {
	f := newFixture(matchingConfig())
	f.publisher.PublishError = errors.New("broker down")

	if err := f.requests.RelayMessage(context.Background(), "req-1", "rider-1", "Alice", "hi", "requester"); err == nil {
		t.Error("expected publish error to surface")
	}
}

func TestRelayLocationPublishesToRequestTopic(t *testing.T) {
	f := newFixture(matchingConfig())

	if err := f.requests.RelayLocation(context.Background(), "req-1", "driver-1", "driver", 48.857, 2.353); err != nil {
		t.Fatalf("RelayLocation failed: %v", err)
	}

	events := f.publisher.EventsNamed(redis.EventLocationUpdate)
	if len(events) != 1 {
		t.Fatalf("expected 1 locationUpdate event, got %d", len(events))
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(matchingConfig())
	f.publisher.PublishError = errors.New("broker down")
	seedRequest(f, "req-1", domain.StatusRidePlaced)

	req, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, "")
	if err != nil {
		t.Fatalf("expected transition to succeed despite publish failure, got %v", err)
	}
	if req.Status != domain.StatusRideActive {
		t.Errorf("expected ride_active, got %s", req.Status)
	}
}

func TestGeoIndexFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(matchingConfig())
	f.geo.AddError = errors.New("redis down")

	req, err := f.requests.CreateRequest(context.Background(), createInput())
	if err != nil {
		t.Fatalf("expected creation to succeed despite geo failure, got %v", err)
	}
	if f.repo.GetRequest(req.ID) == nil {
		t.Error("expected request to be persisted")
	}
}
