package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/otp"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/security"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/mw"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
	"github.com/rajyashhh/mandinex-truck-application/internal/store"
)

type AuthHandler struct {
	logger  *zap.Logger
	norm    phone.Normalizer
	drivers *drivers.Service
	otp     *otp.Service
	refresh *store.RefreshStore
	jwtm    *security.JWTManager
}

func NewAuthHandler(
	logger *zap.Logger,
	norm phone.Normalizer,
	driverSvc *drivers.Service,
	otpSvc *otp.Service,
	refreshStore *store.RefreshStore,
	jwtm *security.JWTManager,
) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		norm:    norm,
		drivers: driverSvc,
		otp:     otpSvc,
		refresh: refreshStore,
		jwtm:    jwtm,
	}
}

type sendOTPReq struct {
	Phone string `json:"phone" binding:"required"`
}

// POST /v1/auth/otp/send
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	p := h.norm.Normalize(req.Phone)
	if len(p) < 10 {
		resp.Error(c, http.StatusBadRequest, "invalid_phone", i18n.T(mw.Lang(c), "error.invalid_payload"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	// The driver row exists from the first code request onwards.
	if _, err := h.drivers.EnsurePending(ctx, p); err != nil {
		fail(c, h.logger, err)
		return
	}
	if err := h.otp.Send(ctx, p, strings.TrimSpace(c.ClientIP())); err != nil {
		if isOTPError(err) {
			fail(c, h.logger, err)
			return
		}
		h.logger.Warn("otp send failed", zap.Error(err))
		resp.Error(c, http.StatusBadGateway, "otp_send_failed", i18n.T(mw.Lang(c), "error.otp_send_failed"))
		return
	}
	resp.OK(c, gin.H{
		"success":     true,
		"message":     i18n.T(mw.Lang(c), "msg.otp_sent"),
		"ttl_seconds": int(h.otp.TTL().Seconds()),
	})
}

type verifyOTPReq struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// POST /v1/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	ctx := c.Request.Context()
	p := h.norm.Normalize(req.Phone)
	if err := h.otp.Verify(ctx, p, strings.TrimSpace(req.OTP)); err != nil {
		fail(c, h.logger, err)
		return
	}

	d, err := h.drivers.Lookup(ctx, p)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if err := h.drivers.MarkVerified(ctx, d.ID); err != nil {
		fail(c, h.logger, err)
		return
	}
	tokens, err := h.issue(ctx, d.ID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{
		"success":           true,
		"tokens":            tokens,
		"driver":            d,
		"needsRegistration": d.Name == nil || d.LicenseNumber == nil,
	})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	// AllDevices revokes every refresh token of the driver.
	AllDevices bool `json:"all_devices"`
}

// POST /v1/auth/refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	claims, err := h.jwtm.ParseRefresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "invalid_refresh_token", i18n.T(mw.Lang(c), "error.unauthorized"))
		return
	}
	if err := h.refresh.Consume(c.Request.Context(), claims.DriverID, claims.ID); err != nil {
		resp.Error(c, http.StatusUnauthorized, "invalid_refresh_token", i18n.T(mw.Lang(c), "error.unauthorized"))
		return
	}
	id, err := uuid.Parse(claims.DriverID)
	if err != nil {
		resp.Error(c, http.StatusUnauthorized, "invalid_refresh_token", i18n.T(mw.Lang(c), "error.unauthorized"))
		return
	}
	tokens, err := h.issue(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "tokens": tokens})
}

// POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	claims, err := h.jwtm.ParseRefresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		resp.OK(c, gin.H{"success": true})
		return
	}
	if req.AllDevices {
		err = h.refresh.RevokeAll(c.Request.Context(), claims.DriverID)
	} else {
		err = h.refresh.Consume(c.Request.Context(), claims.DriverID, claims.ID)
	}
	if err != nil && !errors.Is(err, store.ErrRefreshInvalid) {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true})
}

func (h *AuthHandler) issue(ctx context.Context, driverID uuid.UUID) (security.Tokens, error) {
	tokens, claims, err := h.jwtm.Issue(security.RoleDriver, driverID)
	if err != nil {
		return security.Tokens{}, err
	}
	if err := h.refresh.Put(ctx, claims.DriverID, claims.ID); err != nil {
		return security.Tokens{}, err
	}
	return tokens, nil
}

func isOTPError(err error) bool {
	for _, target := range []error{store.ErrOTPCooldown, store.ErrOTPRateLimited} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
