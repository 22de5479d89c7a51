package service

import "errors"

var (
	// ErrRequestNotBiddable is returned when bidding on a request that is
	// not accepting bids.
	ErrRequestNotBiddable = errors.New("request is not open for bidding")

	// ErrBidListFull is returned when a request already holds the maximum
	// number of bids.
	ErrBidListFull = errors.New("maximum number of bids reached")

	// ErrDuplicateBid is returned when a driver bids twice on one request.
	ErrDuplicateBid = errors.New("driver already bid on this request")

	// ErrBidNotFound is returned when no bid from the driver exists.
	ErrBidNotFound = errors.New("bid not found")

	// ErrInvalidOtp is returned when the completion passcode does not match.
	ErrInvalidOtp = errors.New("invalid otp")

	// ErrInvalidTransition is returned when a status update does not follow
	// the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientBalance is returned when a driver's wallet cannot
	// cover the platform commission.
	ErrInsufficientBalance = errors.New("insufficient balance to cover commission")

	// ErrRequestBusy is returned when another caller holds the request's
	// mutation lock or won a concurrent write.
	ErrRequestBusy = errors.New("request is being modified, retry")

	// ErrInvalidRequestID is returned when the request ID is empty.
	ErrInvalidRequestID = errors.New("invalid request id")

	// ErrInvalidRequesterID is returned when the requester ID is empty.
	ErrInvalidRequesterID = errors.New("invalid requester id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidBidAmount is returned when the bid amount is not positive.
	ErrInvalidBidAmount = errors.New("invalid bid amount")

	// ErrInvalidStatus is returned when a status value is unknown.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidBidStatus is returned when a bid status value is unknown.
	ErrInvalidBidStatus = errors.New("invalid bid status")

	// ErrInvalidPickupLocation is returned when pickup coordinates are invalid.
	ErrInvalidPickupLocation = errors.New("invalid pickup location")

	// ErrInvalidDestinationLocation is returned when destination coordinates are invalid.
	ErrInvalidDestinationLocation = errors.New("invalid destination location")

	// ErrInvalidPage is returned when pagination parameters are not positive.
	ErrInvalidPage = errors.New("invalid pagination parameters")
)
