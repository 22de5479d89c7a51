package service

import (
	"context"
	"log/slog"

	"ridebid/internal/domain"
	"ridebid/internal/observability"
	"ridebid/internal/redis"
)

// Notifier publishes lifecycle events. Publication is fire-and-forget:
// the triggering mutation has already committed, so failures are logged
// and counted but never surfaced to the mutation's caller.
type Notifier struct {
	publisher redis.PublisherInterface
	logger    *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(publisher redis.PublisherInterface, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger}
}

// RequestDiscovered fans a request out to each discovered driver session.
// The payload is the bidding-relevant subset of the record: the completion
// passcode and contact details stay off driver channels until acceptance.
func (n *Notifier) RequestDiscovered(ctx context.Context, req *domain.RideRequest, sessions []domain.DriverPresence) {
	payload := map[string]any{
		"requestId":        req.ID,
		"requesterId":      req.RequesterID,
		"serviceId":        req.ServiceID,
		"vehicleType":      req.VehicleType,
		"pickupLat":        req.PickupLat,
		"pickupLng":        req.PickupLng,
		"destinationLat":   req.DestinationLat,
		"destinationLng":   req.DestinationLng,
		"pickupPlace":      req.PickupPlace,
		"destinationPlace": req.DestinationPlace,
		"requesterName":    req.RequesterName,
		"requesterPhoto":   req.RequesterPhoto,
		"requesterRating":  req.RequesterRating,
		"fare":             req.Fare,
		"extraDetails":     req.ExtraDetails,
		"status":           req.Status,
	}
	for _, s := range sessions {
		n.publish(ctx, redis.DriverTopic(s.SessionID), redis.EventRideRequest, payload)
	}
}

// BidSubmitted notifies the request channel of a new pending bid.
func (n *Notifier) BidSubmitted(ctx context.Context, requestID string, bid domain.Bid) {
	n.publish(ctx, redis.RequestTopic(requestID), redis.EventNewBid, map[string]any{
		"requestId": requestID,
		"driverId":  bid.DriverID,
		"amount":    bid.Amount,
		"driver":    bid.Driver,
		"status":    bid.Status,
	})
}

// StatusChanged notifies the request channel of a status transition.
func (n *Notifier) StatusChanged(ctx context.Context, requestID string, status domain.RequestStatus) {
	n.publish(ctx, redis.RequestTopic(requestID), redis.EventRideStatusUpdate, map[string]any{
		"requestId": requestID,
		"status":    status,
	})
}

func (n *Notifier) publish(ctx context.Context, topic, event string, payload any) {
	if err := n.publisher.Publish(ctx, topic, event, payload); err != nil {
		observability.PublishFailures.WithLabelValues(event).Inc()
		n.logger.Warn("event publish failed",
			slog.String("topic", topic),
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
