package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"ridebid/internal/domain"
	"ridebid/internal/redis"
	"ridebid/internal/repository"
	"ridebid/internal/service"
)

func carKey() redis.GeoKey {
	return redis.GeoKey{ServiceID: "ride", VehicleType: "car"}
}

func createInput() service.CreateRequestInput {
	return service.CreateRequestInput{
		RequesterID:      "rider-1",
		ServiceID:        "ride",
		VehicleType:      "car",
		PickupLat:        48.8566,
		PickupLng:        2.3522,
		DestinationLat:   48.8606,
		DestinationLng:   2.3376,
		PickupPlace:      "Place de la Bastille",
		DestinationPlace: "Louvre",
		RequesterName:    "Alice",
		Fare:             100,
	}
}

func TestCreateRequestOpensForBidding(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()

	// Two drivers are live nearby.
	_ = f.presence.Update(ctx, carKey(), "session-1", 48.857, 2.353)
	_ = f.presence.Update(ctx, carKey(), "session-2", 48.858, 2.351)

	req, err := f.requests.CreateRequest(ctx, createInput())
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if req.Status != domain.StatusBidding {
		t.Errorf("expected status bidding, got %s", req.Status)
	}
	if len(req.OTP) != 4 {
		t.Errorf("expected 4-digit OTP, got %q", req.OTP)
	}
	if !f.geo.HasEntry(carKey(), req.ID) {
		t.Error("expected request in geo index")
	}

	events := f.publisher.EventsNamed(redis.EventRideRequest)
	if len(events) != 2 {
		t.Fatalf("expected 2 rideRequest events, got %d", len(events))
	}
	topics := map[string]bool{}
	for _, e := range events {
		topics[e.Topic] = true
	}
	if !topics[redis.DriverTopic("session-1")] || !topics[redis.DriverTopic("session-2")] {
		t.Errorf("expected fan-out to both driver topics, got %v", topics)
	}
}

func TestDriverFanOutOmitsPasscode(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()
	_ = f.presence.Update(ctx, carKey(), "session-1", 48.857, 2.353)

	req, err := f.requests.CreateRequest(ctx, createInput())
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	events := f.publisher.EventsNamed(redis.EventRideRequest)
	if len(events) != 1 {
		t.Fatalf("expected 1 rideRequest event, got %d", len(events))
	}
	payload, ok := events[0].Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected shaped payload, got %T", events[0].Payload)
	}
	if payload["requestId"] != req.ID {
		t.Errorf("expected requestId %s, got %v", req.ID, payload["requestId"])
	}
	if _, present := payload["otp"]; present {
		t.Error("completion passcode must not reach driver channels")
	}
	if _, present := payload["OTP"]; present {
		t.Error("completion passcode must not reach driver channels")
	}
}

func TestCreateRequestPendingWhenApprovalNeeded(t *testing.T) {
	cfg := matchingConfig()
	cfg.ApproveNeed = true
	f := newFixture(cfg)
	ctx := context.Background()

	_ = f.presence.Update(ctx, carKey(), "session-1", 48.857, 2.353)

	req, err := f.requests.CreateRequest(ctx, createInput())
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if req.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %s", req.Status)
	}
	if f.geo.HasEntry(carKey(), req.ID) {
		t.Error("pending request must not be in geo index")
	}
	if events := f.publisher.EventsNamed(redis.EventRideRequest); len(events) != 0 {
		t.Errorf("pending request must not be fanned out, got %d events", len(events))
	}
}

func TestCreateRequestRejectsBadCoordinates(t *testing.T) {
	f := newFixture(matchingConfig())

	in := createInput()
	in.PickupLat = 91
	if _, err := f.requests.CreateRequest(context.Background(), in); !errors.Is(err, service.ErrInvalidPickupLocation) {
		t.Errorf("expected ErrInvalidPickupLocation, got %v", err)
	}

	in = createInput()
	in.DestinationLng = -200
	if _, err := f.requests.CreateRequest(context.Background(), in); !errors.Is(err, service.ErrInvalidDestinationLocation) {
		t.Errorf("expected ErrInvalidDestinationLocation, got %v", err)
	}
}

func TestApproveOpensBidding(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()
	seedRequest(f, "req-1", domain.StatusPending)
	_ = f.presence.Update(ctx, carKey(), "session-1", 48.857, 2.353)

	req, err := f.requests.Approve(ctx, "req-1")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if req.Status != domain.StatusBidding {
		t.Errorf("expected bidding, got %s", req.Status)
	}
	if !f.geo.HasEntry(carKey(), "req-1") {
		t.Error("expected approved request in geo index")
	}
	if events := f.publisher.EventsNamed(redis.EventRideRequest); len(events) != 1 {
		t.Errorf("expected 1 rideRequest fan-out event, got %d", len(events))
	}
}

func TestApproveRejectsNonPending(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusBidding)

	if _, err := f.requests.Approve(context.Background(), "req-1"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatusFollowsLifecycleGraph(t *testing.T) {
	cases := []struct {
		name    string
		from    domain.RequestStatus
		to      domain.RequestStatus
		wantErr error
	}{
		{"placed to active", domain.StatusRidePlaced, domain.StatusRideActive, nil},
		{"active to arrived", domain.StatusRideActive, domain.StatusArrived, nil},
		{"arrived to in progress", domain.StatusArrived, domain.StatusRideInProgress, nil},
		{"skip arrived", domain.StatusRideActive, domain.StatusRideInProgress, service.ErrInvalidTransition},
		{"backwards", domain.StatusArrived, domain.StatusRideActive, service.ErrInvalidTransition},
		{"bidding direct to placed", domain.StatusBidding, domain.StatusRidePlaced, service.ErrInvalidTransition},
		{"completed is terminal", domain.StatusRideCompleted, domain.StatusRideActive, service.ErrInvalidTransition},
		{"canceled is terminal", domain.StatusRideCanceled, domain.StatusBidding, service.ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(matchingConfig())
			seedRequest(f, "req-1", tc.from)

			req, err := f.requests.UpdateStatus(context.Background(), "req-1", tc.to, "")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				if stored := f.repo.GetRequest("req-1"); stored.Status != tc.from {
					t.Errorf("status must be unchanged, got %s", stored.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateStatus failed: %v", err)
			}
			if req.Status != tc.to {
				t.Errorf("expected %s, got %s", tc.to, req.Status)
			}
		})
	}
}

func TestUpdateStatusCannotOpenBidding(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()
	seedRequest(f, "req-1", domain.StatusPending)

	// Only the approval path opens bidding: it seeds the geo index and
	// fans out to drivers. A bare status write would leave the request
	// in bidding but undiscoverable.
	if _, err := f.requests.UpdateStatus(ctx, "req-1", domain.StatusBidding, ""); !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if stored := f.repo.GetRequest("req-1"); stored.Status != domain.StatusPending {
		t.Errorf("status must be unchanged, got %s", stored.Status)
	}
	if f.geo.HasEntry(carKey(), "req-1") {
		t.Error("request must not be in geo index")
	}
}

func TestCancelFromAnyNonTerminalStatus(t *testing.T) {
	for _, from := range []domain.RequestStatus{
		domain.StatusPending,
		domain.StatusBidding,
		domain.StatusRidePlaced,
		domain.StatusRideActive,
		domain.StatusArrived,
		domain.StatusRideInProgress,
	} {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(matchingConfig())
			seedRequest(f, "req-1", from)

			req, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideCanceled, "")
			if err != nil {
				t.Fatalf("cancel from %s failed: %v", from, err)
			}
			if req.Status != domain.StatusRideCanceled {
				t.Errorf("expected ride_canceled, got %s", req.Status)
			}
		})
	}
}

func TestCompletionRequiresOTP(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()
	seedRequest(f, "req-1", domain.StatusRideInProgress)

	_, err := f.requests.UpdateStatus(ctx, "req-1", domain.StatusRideCompleted, "9999")
	if !errors.Is(err, service.ErrInvalidOtp) {
		t.Fatalf("expected ErrInvalidOtp, got %v", err)
	}
	if stored := f.repo.GetRequest("req-1"); stored.Status != domain.StatusRideInProgress {
		t.Errorf("failed OTP check must leave status unchanged, got %s", stored.Status)
	}

	req, err := f.requests.UpdateStatus(ctx, "req-1", domain.StatusRideCompleted, "1234")
	if err != nil {
		t.Fatalf("completion with correct OTP failed: %v", err)
	}
	if req.Status != domain.StatusRideCompleted {
		t.Errorf("expected ride_completed, got %s", req.Status)
	}

	// Completion is terminal: presenting the OTP again does nothing.
	if _, err := f.requests.UpdateStatus(ctx, "req-1", domain.StatusRideCompleted, "1234"); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on re-completion, got %v", err)
	}
}

func TestOTPNotRequiredForOtherTransitions(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusRidePlaced)

	if _, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, ""); err != nil {
		t.Fatalf("expected transition without OTP to succeed, got %v", err)
	}
}

func TestCancelRemovesGeoEntry(t *testing.T) {
	f := newFixture(matchingConfig())
	ctx := context.Background()
	req := seedRequest(f, "req-1", domain.StatusBidding)
	_ = f.geo.Add(ctx, carKey(), req.ID, req.PickupLat, req.PickupLng)

	if _, err := f.requests.UpdateStatus(ctx, "req-1", domain.StatusRideCanceled, ""); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if f.geo.HasEntry(carKey(), "req-1") {
		t.Error("canceled request must be dropped from geo index")
	}
}

func TestUpdateStatusPublishesStatusEvent(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusRidePlaced)

	if _, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	events := f.publisher.EventsNamed(redis.EventRideStatusUpdate)
	if len(events) != 1 {
		t.Fatalf("expected 1 status event, got %d", len(events))
	}
	if events[0].Topic != redis.RequestTopic("req-1") {
		t.Errorf("expected request topic, got %s", events[0].Topic)
	}
}

func TestUpdateStatusBusyWhenLocked(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusRidePlaced)
	f.locks.ForceAcquireFailure = true

	if _, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, ""); !errors.Is(err, service.ErrRequestBusy) {
		t.Errorf("expected ErrRequestBusy, got %v", err)
	}
}

func TestUpdateStatusReleasesLock(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusRidePlaced)

	if _, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if f.locks.IsLocked("req-1") {
		t.Error("lock must be released after the transition")
	}
	if atomic.LoadInt32(&f.locks.ReleaseCallCount) == 0 {
		t.Error("expected lock release to be called")
	}
}

func TestVersionConflictSurfacesAsBusy(t *testing.T) {
	f := newFixture(matchingConfig())
	seedRequest(f, "req-1", domain.StatusRidePlaced)

	// A rival write bumps the version between our read and write.
	f.repo.UpdateError = repository.ErrVersionConflict

	if _, err := f.requests.UpdateStatus(context.Background(), "req-1", domain.StatusRideActive, ""); !errors.Is(err, service.ErrRequestBusy) {
		t.Errorf("expected ErrRequestBusy on version conflict, got %v", err)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	f := newFixture(matchingConfig())

	if _, err := f.requests.GetRequest(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing request")
	}
}
