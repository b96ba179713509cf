package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

// DispatchHandler lets the operations frontend create and close trips.
type DispatchHandler struct {
	logger   *zap.Logger
	registry *trips.Registry
}

func NewDispatchHandler(logger *zap.Logger, registry *trips.Registry) *DispatchHandler {
	return &DispatchHandler{logger: logger, registry: registry}
}

type scheduleReq struct {
	RidePin      string `json:"ridePin"`
	VehiclePlate string `json:"vehiclePlate"`
	Status       string `json:"status"`
}

// POST /v1/dispatch/trips
func (h *DispatchHandler) Schedule(c *gin.Context) {
	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	t, err := h.registry.Schedule(c.Request.Context(), trips.ScheduleRequest{
		PIN:          req.RidePin,
		VehiclePlate: req.VehiclePlate,
		Status:       domain.TripStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.Created(c, gin.H{"success": true, "trip": t})
}

type finishReq struct {
	Status string `json:"status" binding:"required"`
}

// POST /v1/dispatch/trips/:id/finish
func (h *DispatchHandler) Finish(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, h.logger, domain.ErrTripNotFound)
		return
	}
	var req finishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	t, err := h.registry.Finish(c.Request.Context(), id, domain.TripStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "trip": t})
}
