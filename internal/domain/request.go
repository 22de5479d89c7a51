package domain

import "time"

// RequestStatus represents the lifecycle status of a ride request.
type RequestStatus string

const (
	StatusPending        RequestStatus = "pending"
	StatusBidding        RequestStatus = "bidding"
	StatusRidePlaced     RequestStatus = "ride_placed"
	StatusRideActive     RequestStatus = "ride_active"
	StatusArrived        RequestStatus = "arrived"
	StatusRideInProgress RequestStatus = "ride_in_progress"
	StatusRideCompleted  RequestStatus = "ride_completed"
	StatusRideCanceled   RequestStatus = "ride_canceled"
)

// MaxBidsPerRequest caps the bid list length of a single request.
const MaxBidsPerRequest = 5

// IsTerminal reports whether no transitions leave this status.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusRideCompleted || s == StatusRideCanceled
}

// IsValid reports whether s is a known lifecycle status.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusBidding, StatusRidePlaced, StatusRideActive,
		StatusArrived, StatusRideInProgress, StatusRideCompleted, StatusRideCanceled:
		return true
	}
	return false
}

// transitions is the lifecycle graph. bidding -> ride_placed is absent on
// purpose: that edge is only reachable through bid acceptance.
var transitions = map[RequestStatus][]RequestStatus{
	StatusPending:        {StatusBidding, StatusRideCanceled},
	StatusBidding:        {StatusRideCanceled},
	StatusRidePlaced:     {StatusRideActive, StatusRideCanceled},
	StatusRideActive:     {StatusArrived, StatusRideCanceled},
	StatusArrived:        {StatusRideInProgress, StatusRideCanceled},
	StatusRideInProgress: {StatusRideCompleted, StatusRideCanceled},
}

// CanTransition reports whether the lifecycle graph has an edge from -> to.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BidStatus represents the status of a single bid.
type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
)

// DriverSnapshot carries the driver profile captured at bid time.
type DriverSnapshot struct {
	Name         string  `json:"name"`
	Photo        string  `json:"photo"`
	Rating       float64 `json:"rating"`
	Phone        string  `json:"phone"`
	Vehicle      string  `json:"vehicle"`
	VehiclePlate string  `json:"vehicle_plate"`
	PushToken    string  `json:"push_token"`
}

// Bid is a single driver offer against a ride request. Bids are embedded
// in the request record, never stored standalone.
type Bid struct {
	DriverID string         `json:"driver_id"`
	Amount   float64        `json:"amount"`
	Charged  float64        `json:"charged"`
	Driver   DriverSnapshot `json:"driver"`
	Status   BidStatus      `json:"status"`
}

// Assignment holds the driver fields copied onto a request when a bid is
// accepted. Immutable once the request reaches ride_placed.
type Assignment struct {
	DriverID     string
	Fare         float64
	Photo        string
	Name         string
	Vehicle      string
	VehiclePlate string
	Phone        string
	PushToken    string
	Rating       float64
}

// RideRequest is one trip intent moving through the bidding lifecycle.
type RideRequest struct {
	ID          string
	RequesterID string
	ServiceID   string
	VehicleType string

	PickupLat        float64
	PickupLng        float64
	DestinationLat   float64
	DestinationLng   float64
	PickupPlace      string
	DestinationPlace string

	RequesterName   string
	RequesterPhoto  string
	RequesterRating float64
	RequesterPhone  string
	PushToken       string

	Fare         float64
	ExtraDetails string
	OTP          string

	Status RequestStatus
	Bids   []Bid
	Driver Assignment

	// Version guards read-modify-write sequences: every update must carry
	// the version it read, and the store rejects stale writes.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BidByDriver returns the index of the driver's bid, or -1.
func (r *RideRequest) BidByDriver(driverID string) int {
	for i := range r.Bids {
		if r.Bids[i].DriverID == driverID {
			return i
		}
	}
	return -1
}
