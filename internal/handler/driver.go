package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebid/internal/service"
)

// DriverHandler handles HTTP requests for driver presence.
type DriverHandler struct {
	requestService *service.RequestService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(requestService *service.RequestService) *DriverHandler {
	return &DriverHandler{requestService: requestService}
}

// PresenceBody is the HTTP request body for a driver presence beacon.
type PresenceBody struct {
	ServiceID   string  `json:"service_id"`
	VehicleType string  `json:"vehicle_type"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// UpdatePresence handles POST /v1/drivers/:id/presence
func (h *DriverHandler) UpdatePresence(c *gin.Context) {
	var body PresenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.requestService.UpdateDriverPresence(
		c.Request.Context(),
		body.ServiceID,
		body.VehicleType,
		c.Param("id"),
		body.Lat,
		body.Lng,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "presence updated"})
}
