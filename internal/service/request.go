package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridebid/internal/config"
	"ridebid/internal/domain"
	"ridebid/internal/observability"
	"ridebid/internal/redis"
	"ridebid/internal/repository"
)

const requestLockTTL = 10 * time.Second

// RequestService orchestrates the ride-request lifecycle: creation,
// operator approval, driver discovery and status transitions.
type RequestService struct {
	requestRepo repository.RequestRepository
	geoIndex    redis.RequestGeoIndexInterface
	presence    redis.PresenceStoreInterface
	lockStore   redis.LockStoreInterface
	cacheStore  *redis.CacheStore
	notifier    *Notifier
	publisher   redis.PublisherInterface
	cfg         config.MatchingConfig
	logger      *slog.Logger
}

// NewRequestService creates a new RequestService.
func NewRequestService(
	requestRepo repository.RequestRepository,
	geoIndex redis.RequestGeoIndexInterface,
	presence redis.PresenceStoreInterface,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	notifier *Notifier,
	publisher redis.PublisherInterface,
	cfg config.MatchingConfig,
	logger *slog.Logger,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		geoIndex:    geoIndex,
		presence:    presence,
		lockStore:   lockStore,
		cacheStore:  cacheStore,
		notifier:    notifier,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateRequestInput contains the parameters for creating a ride request.
type CreateRequestInput struct {
	RequesterID      string
	ServiceID        string
	VehicleType      string
	PickupLat        float64
	PickupLng        float64
	DestinationLat   float64
	DestinationLng   float64
	PickupPlace      string
	DestinationPlace string
	RequesterName    string
	RequesterPhoto   string
	RequesterRating  float64
	RequesterPhone   string
	PushToken        string
	Fare             float64
	ExtraDetails     string
}

// CreateRequest persists a new request and, when it opens for bidding
// immediately, seeds the geo index and notifies nearby drivers.
func (s *RequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*domain.RideRequest, error) {
	if err := s.validateCreateInput(in); err != nil {
		return nil, err
	}

	status := domain.StatusBidding
	if s.cfg.ApproveNeed {
		status = domain.StatusPending
	}

	now := time.Now()
	req := &domain.RideRequest{
		ID:               uuid.New().String(),
		RequesterID:      in.RequesterID,
		ServiceID:        in.ServiceID,
		VehicleType:      in.VehicleType,
		PickupLat:        in.PickupLat,
		PickupLng:        in.PickupLng,
		DestinationLat:   in.DestinationLat,
		DestinationLng:   in.DestinationLng,
		PickupPlace:      in.PickupPlace,
		DestinationPlace: in.DestinationPlace,
		RequesterName:    in.RequesterName,
		RequesterPhoto:   in.RequesterPhoto,
		RequesterRating:  in.RequesterRating,
		RequesterPhone:   in.RequesterPhone,
		PushToken:        in.PushToken,
		Fare:             in.Fare,
		ExtraDetails:     in.ExtraDetails,
		OTP:              generateOTP(),
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	observability.RequestsCreated.Inc()

	if req.Status == domain.StatusBidding {
		s.indexAndNotify(ctx, req)
	}

	return req, nil
}

// Approve moves a pending request into bidding, seeds the geo index and
// notifies nearby drivers. Operator action.
func (s *RequestService) Approve(ctx context.Context, requestID string) (*domain.RideRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(req.Status, domain.StatusBidding) {
		return nil, ErrInvalidTransition
	}

	req.Status = domain.StatusBidding
	req.UpdatedAt = time.Now()
	if err := s.requestRepo.Update(ctx, req); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrRequestBusy
		}
		return nil, err
	}
	observability.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
	s.invalidateCache(ctx, req.ID)

	s.notifier.StatusChanged(ctx, req.ID, req.Status)
	s.indexAndNotify(ctx, req)

	return req, nil
}

// UpdateStatus applies a lifecycle transition driven by a participant.
// The transition into ride_completed additionally requires the caller to
// present the request's one-time passcode. The bidding -> ride_placed
// edge is rejected here: it is only reachable through bid acceptance.
func (s *RequestService) UpdateStatus(ctx context.Context, requestID string, newStatus domain.RequestStatus, otp string) (*domain.RideRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if !newStatus.IsValid() {
		return nil, ErrInvalidStatus
	}
	if newStatus == domain.StatusBidding {
		// Opening for bidding is the operator approval path: it carries
		// the geo seeding and driver fan-out this endpoint does not.
		return nil, ErrInvalidTransition
	}

	locked, err := s.lockStore.AcquireRequestLock(ctx, requestID, requestLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestBusy
	}
	defer func() {
		_ = s.lockStore.ReleaseRequestLock(ctx, requestID)
	}()

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(req.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	if newStatus == domain.StatusRideCompleted &&
		subtle.ConstantTimeCompare([]byte(req.OTP), []byte(otp)) != 1 {
		return nil, ErrInvalidOtp
	}

	previous := req.Status
	req.Status = newStatus
	req.UpdatedAt = time.Now()
	if err := s.requestRepo.Update(ctx, req); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrRequestBusy
		}
		return nil, err
	}
	observability.StatusTransitions.WithLabelValues(string(newStatus)).Inc()
	s.invalidateCache(ctx, req.ID)

	if previous == domain.StatusBidding {
		s.removeFromIndex(ctx, req)
	}

	s.notifier.StatusChanged(ctx, req.ID, newStatus)

	return req, nil
}

// GetRequest retrieves a request, preferring the read cache.
func (s *RequestService) GetRequest(ctx context.Context, requestID string) (*domain.RideRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetRequest(ctx, requestID); err == nil && cached != nil {
			return cached, nil
		}
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetRequest(ctx, req)
	}

	return req, nil
}

// Page is one page of an operator listing.
type Page struct {
	Requests    []*domain.RideRequest
	TotalItems  int
	TotalPages  int
	CurrentPage int
	PageSize    int
}

// List returns one page of requests for the operator view, newest first,
// optionally filtered by status. Page size is clamped to the configured
// maximum.
func (s *RequestService) List(ctx context.Context, status domain.RequestStatus, page, pageSize int) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	if status != "" && !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	offset := (page - 1) * pageSize
	requests, total, err := s.requestRepo.List(ctx, repository.ListFilter{Status: status}, pageSize, offset)
	if err != nil {
		return nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize

	return &Page{
		Requests:    requests,
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
	}, nil
}

// ListByUser returns the requests a user is party to, filtered to
// "all", "running" or "history".
func (s *RequestService) ListByUser(ctx context.Context, userID string, isDriver bool, filter string) ([]*domain.RideRequest, error) {
	if userID == "" {
		return nil, ErrInvalidRequesterID
	}
	switch filter {
	case "", "all", "running", "history":
	default:
		return nil, ErrInvalidStatus
	}

	return s.requestRepo.ListByUser(ctx, repository.UserScope{
		UserID:   userID,
		IsDriver: isDriver,
		Filter:   filter,
	})
}

// FindRequestsNearDriver returns biddable requests within range of the
// driver's position. The geo index may hold stale members, so results
// are always re-filtered against the authoritative record status.
func (s *RequestService) FindRequestsNearDriver(ctx context.Context, serviceID, vehicleType string, lat, lng float64) ([]*domain.RideRequest, error) {
	key := redis.GeoKey{ServiceID: serviceID, VehicleType: vehicleType}

	entries, err := s.geoIndex.Search(ctx, key, lat, lng, s.cfg.RequestSearchRadiusKm, 0)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []*domain.RideRequest{}, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.MemberID
	}

	requests, err := s.requestRepo.GetByIDs(ctx, ids, domain.StatusBidding)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*domain.RideRequest{}
	}
	return requests, nil
}

// DiscoverNearbyDrivers returns driver sessions near a pickup point.
// Purely advisory: the result is a fan-out target list, never an
// assignment.
func (s *RequestService) DiscoverNearbyDrivers(ctx context.Context, serviceID, vehicleType string, lat, lng float64) ([]domain.DriverPresence, error) {
	key := redis.GeoKey{ServiceID: serviceID, VehicleType: vehicleType}
	sessions, err := s.presence.FindNearby(ctx, key, lat, lng, s.cfg.DriverSearchRadiusKm, s.cfg.DriverSearchLimit)
	if err != nil {
		return nil, err
	}
	observability.DriversDiscovered.Observe(float64(len(sessions)))
	return sessions, nil
}

// UpdateDriverPresence records a driver session's live position.
func (s *RequestService) UpdateDriverPresence(ctx context.Context, serviceID, vehicleType, sessionID string, lat, lng float64) error {
	if sessionID == "" {
		return ErrInvalidDriverID
	}
	if !validLatitude(lat) || !validLongitude(lng) {
		return ErrInvalidPickupLocation
	}
	key := redis.GeoKey{ServiceID: serviceID, VehicleType: vehicleType}
	return s.presence.Update(ctx, key, sessionID, lat, lng)
}

// RelayMessage passes a chat message through to the request channel.
// Not state-affecting; the publish result is the operation's result.
func (s *RequestService) RelayMessage(ctx context.Context, requestID, userID, name, message, role string) error {
	if requestID == "" {
		return ErrInvalidRequestID
	}
	return s.publisher.Publish(ctx, redis.RequestTopic(requestID), redis.EventNewMessage, map[string]any{
		"requestId": requestID,
		"userId":    userID,
		"name":      name,
		"message":   message,
		"role":      role,
	})
}

// RelayLocation passes a live position through to the request channel
// during an in-progress ride. Not state-affecting.
func (s *RequestService) RelayLocation(ctx context.Context, requestID, userID, role string, lat, lng float64) error {
	if requestID == "" {
		return ErrInvalidRequestID
	}
	return s.publisher.Publish(ctx, redis.RequestTopic(requestID), redis.EventLocationUpdate, map[string]any{
		"role":   role,
		"userId": userID,
		"lat":    lat,
		"lng":    lng,
	})
}

// indexAndNotify seeds the geo index with the request's pickup point and
// fans the request out to nearby driver sessions. Both steps are
// best-effort: the record is already committed.
func (s *RequestService) indexAndNotify(ctx context.Context, req *domain.RideRequest) {
	key := redis.GeoKey{ServiceID: req.ServiceID, VehicleType: req.VehicleType}

	if err := s.geoIndex.Add(ctx, key, req.ID, req.PickupLat, req.PickupLng); err != nil {
		s.logger.Warn("geo index add failed",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	sessions, err := s.DiscoverNearbyDrivers(ctx, req.ServiceID, req.VehicleType, req.PickupLat, req.PickupLng)
	if err != nil {
		s.logger.Warn("driver discovery failed",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.notifier.RequestDiscovered(ctx, req, sessions)
}

// removeFromIndex drops the request from the geo index once it has left
// bidding. At-least-once: readers re-filter by authoritative status.
func (s *RequestService) removeFromIndex(ctx context.Context, req *domain.RideRequest) {
	key := redis.GeoKey{ServiceID: req.ServiceID, VehicleType: req.VehicleType}
	if err := s.geoIndex.Remove(ctx, key, req.ID); err != nil {
		s.logger.Warn("geo index remove failed",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RequestService) invalidateCache(ctx context.Context, requestID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateRequest(ctx, requestID)
}

func (s *RequestService) validateCreateInput(in CreateRequestInput) error {
	if in.RequesterID == "" {
		return ErrInvalidRequesterID
	}
	if !validLatitude(in.PickupLat) || !validLongitude(in.PickupLng) {
		return ErrInvalidPickupLocation
	}
	if !validLatitude(in.DestinationLat) || !validLongitude(in.DestinationLng) {
		return ErrInvalidDestinationLocation
	}
	return nil
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func validLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
