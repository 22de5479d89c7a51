package service

import (
	"context"
	"log/slog"
	"time"

	"ridebid/internal/config"
	"ridebid/internal/domain"
	"ridebid/internal/observability"
	"ridebid/internal/redis"
	"ridebid/internal/repository"
)

// BidService is the bid ledger: admission rules, fee computation and
// selection for bids attached to a request. Every mutation runs under a
// per-request lock with an optimistic version check as a second guard.
type BidService struct {
	requestRepo repository.RequestRepository
	driverRepo  repository.DriverRepository
	geoIndex    redis.RequestGeoIndexInterface
	lockStore   redis.LockStoreInterface
	cacheStore  *redis.CacheStore
	notifier    *Notifier
	cfg         config.MatchingConfig
	logger      *slog.Logger
}

// NewBidService creates a new BidService.
func NewBidService(
	requestRepo repository.RequestRepository,
	driverRepo repository.DriverRepository,
	geoIndex redis.RequestGeoIndexInterface,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	notifier *Notifier,
	cfg config.MatchingConfig,
	logger *slog.Logger,
) *BidService {
	return &BidService{
		requestRepo: requestRepo,
		driverRepo:  driverRepo,
		geoIndex:    geoIndex,
		lockStore:   lockStore,
		cacheStore:  cacheStore,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
	}
}

// SubmitBidInput contains the parameters for submitting a bid.
type SubmitBidInput struct {
	RequestID string
	DriverID  string
	Amount    float64
	Driver    domain.DriverSnapshot
}

// SubmitBid admits a driver's offer to the request's bid list.
//
// The amount charged to the requester is the bid plus the service charge
// percentage. The platform commission is computed on the raw bid and is
// advisory unless EnforceBalanceCheck is set, in which case the driver's
// wallet must cover it.
func (s *BidService) SubmitBid(ctx context.Context, in SubmitBidInput) (*domain.RideRequest, error) {
	if in.RequestID == "" {
		return nil, ErrInvalidRequestID
	}
	if in.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidBidAmount
	}

	locked, err := s.lockStore.AcquireRequestLock(ctx, in.RequestID, requestLockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestBusy
	}
	defer func() {
		_ = s.lockStore.ReleaseRequestLock(ctx, in.RequestID)
	}()

	req, err := s.requestRepo.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}

	if req.Status != domain.StatusBidding {
		return nil, ErrRequestNotBiddable
	}
	if len(req.Bids) >= domain.MaxBidsPerRequest {
		return nil, ErrBidListFull
	}
	if req.BidByDriver(in.DriverID) >= 0 {
		return nil, ErrDuplicateBid
	}

	commission := in.Amount * s.cfg.CommissionRatePercent / 100
	if s.cfg.EnforceBalanceCheck {
		driver, err := s.driverRepo.GetByID(ctx, in.DriverID)
		if err != nil {
			return nil, err
		}
		if driver.WalletBalance < commission {
			return nil, ErrInsufficientBalance
		}
	}

	bid := domain.Bid{
		DriverID: in.DriverID,
		Amount:   in.Amount,
		Charged:  in.Amount + in.Amount*s.cfg.ServiceChargePercent/100,
		Driver:   in.Driver,
		Status:   domain.BidStatusPending,
	}

	req.Bids = append(req.Bids, bid)
	req.UpdatedAt = time.Now()
	if err := s.requestRepo.Update(ctx, req); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrRequestBusy
		}
		return nil, err
	}
	observability.BidsSubmitted.Inc()
	s.invalidateCache(ctx, req.ID)

	s.notifier.BidSubmitted(ctx, req.ID, bid)

	return req, nil
}

// SetBidStatus updates one driver's bid. Accepting a bid assigns the
// driver to the request and moves it to ride_placed; rival pending bids
// are deliberately left untouched.
func (s *BidService) SetBidStatus(ctx context.Context, requestID, driverID string, status domain.BidStatus) (*domain.RideRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	switch status {
	case domain.BidStatusPending, domain.BidStatusAccepted, domain.BidStatusRejected:
	default:
		return nil, ErrInvalidBidStatus
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

	i := req.BidByDriver(driverID)
	if i < 0 {
		return nil, ErrBidNotFound
	}

	if status == domain.BidStatusAccepted {
		// Acceptance is only legal while the request is still open;
		// it is the sole path onto the ride_placed edge.
		if req.Status != domain.StatusBidding {
			return nil, ErrRequestNotBiddable
		}

		bid := &req.Bids[i]
		bid.Status = domain.BidStatusAccepted

		rating := bid.Driver.Rating
		if rating == 0 {
			rating = 5
		}
		req.Driver = domain.Assignment{
			DriverID:     bid.DriverID,
			Fare:         bid.Charged,
			Photo:        bid.Driver.Photo,
			Name:         bid.Driver.Name,
			Vehicle:      bid.Driver.Vehicle,
			VehiclePlate: bid.Driver.VehiclePlate,
			Phone:        bid.Driver.Phone,
			PushToken:    bid.Driver.PushToken,
			Rating:       rating,
		}
		req.Status = domain.StatusRidePlaced
	} else {
		req.Bids[i].Status = status
	}

	req.UpdatedAt = time.Now()
	if err := s.requestRepo.Update(ctx, req); err != nil {
		if err == repository.ErrVersionConflict {
			return nil, ErrRequestBusy
		}
		return nil, err
	}
	s.invalidateCache(ctx, req.ID)

	if req.Status == domain.StatusRidePlaced {
		observability.StatusTransitions.WithLabelValues(string(req.Status)).Inc()
		s.removeFromIndex(ctx, req)
		s.notifier.StatusChanged(ctx, req.ID, req.Status)
	}

	return req, nil
}

func (s *BidService) removeFromIndex(ctx context.Context, req *domain.RideRequest) {
	key := redis.GeoKey{ServiceID: req.ServiceID, VehicleType: req.VehicleType}
	if err := s.geoIndex.Remove(ctx, key, req.ID); err != nil {
		s.logger.Warn("geo index remove failed",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *BidService) invalidateCache(ctx context.Context, requestID string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.InvalidateRequest(ctx, requestID)
}
