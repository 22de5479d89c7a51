package tests

import (
	"io"
	"log/slog"
	"time"

	"ridebid/internal/config"
	"ridebid/internal/domain"
	"ridebid/internal/service"
)

// fixture wires the services against in-memory mocks.
type fixture struct {
	repo       *MockRequestRepository
	driverRepo *MockDriverRepository
	geo        *MockGeoIndex
	presence   *MockPresenceStore
	locks      *MockLockStore
	publisher  *MockPublisher

	requests *service.RequestService
	bids     *service.BidService
}

func newFixture(cfg config.MatchingConfig) *fixture {
	f := &fixture{
		repo:       NewMockRequestRepository(),
		driverRepo: NewMockDriverRepository(),
		geo:        NewMockGeoIndex(),
		presence:   NewMockPresenceStore(),
		locks:      NewMockLockStore(),
		publisher:  NewMockPublisher(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := service.NewNotifier(f.publisher, logger)

	f.requests = service.NewRequestService(
		f.repo, f.geo, f.presence, f.locks, nil,
		notifier, f.publisher, cfg, logger,
	)
	f.bids = service.NewBidService(
		f.repo, f.driverRepo, f.geo, f.locks, nil,
		notifier, cfg, logger,
	)
	return f
}

func matchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		CommissionRatePercent: 10,
		ServiceChargePercent:  5,
		DriverSearchRadiusKm:  10,
		DriverSearchLimit:     20,
		RequestSearchRadiusKm: 2,
		MaxPageSize:           100,
	}
}

func seedRequest(f *fixture, id string, status domain.RequestStatus) *domain.RideRequest {
	now := time.Now()
	req := &domain.RideRequest{
		ID:          id,
		RequesterID: "rider-1",
		ServiceID:   "ride",
		VehicleType: "car",
		PickupLat:   48.8566,
		PickupLng:   2.3522,
		OTP:         "1234",
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.repo.AddRequest(req)
	return req
}
