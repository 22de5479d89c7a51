package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridebid/internal/domain"
	"ridebid/internal/service"
)

// RequestHandler handles HTTP requests for ride requests.
type RequestHandler struct {
	requestService *service.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestService *service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateRequestBody is the HTTP request body for creating a ride request.
type CreateRequestBody struct {
	RequesterID      string  `json:"requester_id"`
	ServiceID        string  `json:"service_id"`
	VehicleType      string  `json:"vehicle_type"`
	PickupLat        float64 `json:"pickup_lat"`
	PickupLng        float64 `json:"pickup_lng"`
	DestinationLat   float64 `json:"destination_lat"`
	DestinationLng   float64 `json:"destination_lng"`
	PickupPlace      string  `json:"pickup_place"`
	DestinationPlace string  `json:"destination_place"`
	RequesterName    string  `json:"requester_name"`
	RequesterPhoto   string  `json:"requester_photo"`
	RequesterRating  float64 `json:"requester_rating"`
	RequesterPhone   string  `json:"requester_phone"`
	PushToken        string  `json:"push_token"`
	Fare             float64 `json:"fare"`
	ExtraDetails     string  `json:"extra_details"`
}

// UpdateStatusBody is the HTTP request body for a lifecycle transition.
type UpdateStatusBody struct {
	Status string `json:"status"`
	OTP    string `json:"otp,omitempty"`
}

// MessageBody is the HTTP request body for the chat relay.
type MessageBody struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Role    string `json:"role"`
}

// LocationBody is the HTTP request body for the location relay.
type LocationBody struct {
	UserID string  `json:"user_id"`
	Role   string  `json:"role"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// BidResponse is the wire form of a single bid.
type BidResponse struct {
	DriverID string                `json:"driver_id"`
	Amount   float64               `json:"amount"`
	Charged  float64               `json:"charged"`
	Driver   domain.DriverSnapshot `json:"driver"`
	Status   string                `json:"status"`
}

// RequestResponse is the wire form of a ride request.
type RequestResponse struct {
	ID               string        `json:"id"`
	RequesterID      string        `json:"requester_id"`
	ServiceID        string        `json:"service_id"`
	VehicleType      string        `json:"vehicle_type"`
	PickupLat        float64       `json:"pickup_lat"`
	PickupLng        float64       `json:"pickup_lng"`
	DestinationLat   float64       `json:"destination_lat"`
	DestinationLng   float64       `json:"destination_lng"`
	PickupPlace      string        `json:"pickup_place"`
	DestinationPlace string        `json:"destination_place"`
	RequesterName    string        `json:"requester_name"`
	RequesterPhone   string        `json:"requester_phone"`
	Fare             float64       `json:"fare"`
	ExtraDetails     string        `json:"extra_details,omitempty"`
	OTP              string        `json:"otp,omitempty"`
	Status           string        `json:"status"`
	Bids             []BidResponse `json:"bids"`
	DriverID         string        `json:"driver_id,omitempty"`
	DriverFare       float64       `json:"driver_fare,omitempty"`
	DriverName       string        `json:"driver_name,omitempty"`
	Vehicle          string        `json:"vehicle,omitempty"`
	VehiclePlate     string        `json:"vehicle_plate,omitempty"`
	DriverPhone      string        `json:"driver_phone,omitempty"`
	DriverRating     float64       `json:"driver_rating,omitempty"`
	CreatedAt        string        `json:"created_at"`
}

// PageResponse is the wire form of an operator listing page.
type PageResponse struct {
	Data       []RequestResponse `json:"data"`
	TotalItems int               `json:"total_items"`
	TotalPages int               `json:"total_pages"`
	Page       int               `json:"current_page"`
	PageSize   int               `json:"page_size"`
}

func toRequestResponse(req *domain.RideRequest) RequestResponse {
	bids := make([]BidResponse, 0, len(req.Bids))
	for _, b := range req.Bids {
		bids = append(bids, BidResponse{
			DriverID: b.DriverID,
			Amount:   b.Amount,
			Charged:  b.Charged,
			Driver:   b.Driver,
			Status:   string(b.Status),
		})
	}

	return RequestResponse{
		ID:               req.ID,
		RequesterID:      req.RequesterID,
		ServiceID:        req.ServiceID,
		VehicleType:      req.VehicleType,
		PickupLat:        req.PickupLat,
		PickupLng:        req.PickupLng,
		DestinationLat:   req.DestinationLat,
		DestinationLng:   req.DestinationLng,
		PickupPlace:      req.PickupPlace,
		DestinationPlace: req.DestinationPlace,
		RequesterName:    req.RequesterName,
		RequesterPhone:   req.RequesterPhone,
		Fare:             req.Fare,
		ExtraDetails:     req.ExtraDetails,
		OTP:              req.OTP,
		Status:           string(req.Status),
		Bids:             bids,
		DriverID:         req.Driver.DriverID,
		DriverFare:       req.Driver.Fare,
		DriverName:       req.Driver.Name,
		Vehicle:          req.Driver.Vehicle,
		VehiclePlate:     req.Driver.VehiclePlate,
		DriverPhone:      req.Driver.Phone,
		DriverRating:     req.Driver.Rating,
		CreatedAt:        req.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toRequestResponses(reqs []*domain.RideRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toRequestResponse(r))
	}
	return out
}

// Create handles POST /v1/ride-requests
func (h *RequestHandler) Create(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.CreateRequest(c.Request.Context(), service.CreateRequestInput{
		RequesterID:      body.RequesterID,
		ServiceID:        body.ServiceID,
		VehicleType:      body.VehicleType,
		PickupLat:        body.PickupLat,
		PickupLng:        body.PickupLng,
		DestinationLat:   body.DestinationLat,
		DestinationLng:   body.DestinationLng,
		PickupPlace:      body.PickupPlace,
		DestinationPlace: body.DestinationPlace,
		RequesterName:    body.RequesterName,
		RequesterPhoto:   body.RequesterPhoto,
		RequesterRating:  body.RequesterRating,
		RequesterPhone:   body.RequesterPhone,
		PushToken:        body.PushToken,
		Fare:             body.Fare,
		ExtraDetails:     body.ExtraDetails,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRequestResponse(req))
}

// Get handles GET /v1/ride-requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}

// Approve handles POST /v1/ride-requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	req, err := h.requestService.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}

// UpdateStatus handles POST /v1/ride-requests/:id/status
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var body UpdateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.requestService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.RequestStatus(body.Status), body.OTP)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}

// List handles GET /v1/ride-requests (operator view)
func (h *RequestHandler) List(c *gin.Context) {
	page, err := positiveQueryInt(c, "page", 1)
	if err != nil {
		respondError(c, service.ErrInvalidPage)
		return
	}
	pageSize, err := positiveQueryInt(c, "page_size", 10)
	if err != nil {
		respondError(c, service.ErrInvalidPage)
		return
	}

	result, err := h.requestService.List(c.Request.Context(), domain.RequestStatus(c.Query("status")), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, PageResponse{
		Data:       toRequestResponses(result.Requests),
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
		Page:       result.CurrentPage,
		PageSize:   result.PageSize,
	})
}

// ListByUser handles GET /v1/ride-requests/user
func (h *RequestHandler) ListByUser(c *gin.Context) {
	userID := c.Query("user_id")
	isDriver := c.Query("is_driver") == "true"
	filter := c.DefaultQuery("filter", "all")

	reqs, err := h.requestService.ListByUser(c.Request.Context(), userID, isDriver, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponses(reqs))
}

// Nearby handles GET /v1/ride-requests/nearby (driver discovery)
func (h *RequestHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid coordinates"})
		return
	}

	reqs, err := h.requestService.FindRequestsNearDriver(
		c.Request.Context(),
		c.Query("service_id"),
		c.Query("vehicle_type"),
		lat, lng,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponses(reqs))
}

// Message handles POST /v1/ride-requests/:id/message
func (h *RequestHandler) Message(c *gin.Context) {
	var body MessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.requestService.RelayMessage(c.Request.Context(), c.Param("id"), body.UserID, body.Name, body.Message, body.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "sent"})
}

// Location handles POST /v1/ride-requests/:id/location
func (h *RequestHandler) Location(c *gin.Context) {
	var body LocationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.requestService.RelayLocation(c.Request.Context(), c.Param("id"), body.UserID, body.Role, body.Lat, body.Lng)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "location shared"})
}

func positiveQueryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, service.ErrInvalidPage
	}
	return v, nil
}
