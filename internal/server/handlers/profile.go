package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/mw"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
)

type ProfileHandler struct {
	logger  *zap.Logger
	drivers *drivers.Service
}

func NewProfileHandler(logger *zap.Logger, driverSvc *drivers.Service) *ProfileHandler {
	return &ProfileHandler{logger: logger, drivers: driverSvc}
}

// GET /v1/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), mw.DriverID(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "driver": d})
}

type updateProfileReq struct {
	DriverName    *string `json:"driverName"`
	LicenseNumber *string `json:"licenseNumber"`
}

// PATCH /v1/profile completes or edits registration.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	d, err := h.drivers.CompleteRegistration(c.Request.Context(), mw.DriverID(c), drivers.Profile{
		Name:          req.DriverName,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "driver": d})
}
