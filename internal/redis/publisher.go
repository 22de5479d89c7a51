package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Event names carried on request channels.
const (
	EventRideRequest      = "rideRequest"
	EventNewBid           = "newBid"
	EventRideStatusUpdate = "rideStatusUpdate"
	EventLocationUpdate   = "locationUpdate"
	EventNewMessage       = "newMessage"
)

// RequestTopic is the channel all parties to a request subscribe to.
func RequestTopic(requestID string) string {
	return "request:" + requestID
}

// DriverTopic is the channel a single driver session subscribes to.
func DriverTopic(sessionID string) string {
	return "driver:" + sessionID
}

// envelope is the wire format on every channel.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Publisher fans out lifecycle events over Redis pub/sub. The real-time
// transport (socket gateway) subscribes and relays to connected clients.
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends one event to a topic. Delivery is fire-and-forget:
// there are no acknowledgements and no retries.
func (p *Publisher) Publish(ctx context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return p.client.Publish(ctx, topic, data).Err()
}
