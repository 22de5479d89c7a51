package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebid/internal/domain"
	"ridebid/internal/service"
)

// BidHandler handles HTTP requests for bids.
type BidHandler struct {
	bidService *service.BidService
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(bidService *service.BidService) *BidHandler {
	return &BidHandler{bidService: bidService}
}

// SubmitBidBody is the HTTP request body for submitting a bid.
type SubmitBidBody struct {
	DriverID     string  `json:"driver_id"`
	Amount       float64 `json:"amount"`
	Name         string  `json:"name"`
	Photo        string  `json:"photo"`
	Rating       float64 `json:"rating"`
	Phone        string  `json:"phone"`
	Vehicle      string  `json:"vehicle"`
	VehiclePlate string  `json:"vehicle_plate"`
	PushToken    string  `json:"push_token"`
}

// SetBidStatusBody is the HTTP request body for updating a bid's status.
type SetBidStatusBody struct {
	DriverID string `json:"driver_id"`
	Status   string `json:"status"`
}

// Submit handles POST /v1/ride-requests/:id/bids
func (h *BidHandler) Submit(c *gin.Context) {
	var body SubmitBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.bidService.SubmitBid(c.Request.Context(), service.SubmitBidInput{
		RequestID: c.Param("id"),
		DriverID:  body.DriverID,
		Amount:    body.Amount,
		Driver: domain.DriverSnapshot{
			Name:         body.Name,
			Photo:        body.Photo,
			Rating:       body.Rating,
			Phone:        body.Phone,
			Vehicle:      body.Vehicle,
			VehiclePlate: body.VehiclePlate,
			PushToken:    body.PushToken,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}

// SetStatus handles POST /v1/ride-requests/:id/bids/status
func (h *BidHandler) SetStatus(c *gin.Context) {
	var body SetBidStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.bidService.SetBidStatus(c.Request.Context(), c.Param("id"), body.DriverID, domain.BidStatus(body.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRequestResponse(req))
}
