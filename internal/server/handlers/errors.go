package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/mw"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
	"github.com/rajyashhh/mandinex-truck-application/internal/store"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

type errorMapping struct {
	target error
	status int
	code   string
	key    string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{domain.ErrInvalidPin, http.StatusForbidden, "invalid_pin", "error.invalid_pin"},
	{domain.ErrTripAlreadyActive, http.StatusForbidden, "trip_already_active", "error.trip_already_active"},
	{domain.ErrTripNotFound, http.StatusNotFound, "trip_not_found", "error.trip_not_found"},
	{domain.ErrDriverNotFound, http.StatusNotFound, "driver_not_found", "error.driver_not_found"},
	{domain.ErrMissingFields, http.StatusBadRequest, "missing_fields", "error.missing_fields"},
	{domain.ErrInvalidCoordinates, http.StatusBadRequest, "invalid_coordinates", "error.invalid_coordinates"},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "error.store_unavailable"},
	{trips.ErrPinInUse, http.StatusConflict, "pin_in_use", "error.pin_in_use"},
	{trips.ErrConflict, http.StatusConflict, "conflict", "error.conflict"},
	{positions.ErrNotFound, http.StatusNotFound, "not_found", "error.not_found"},
	{positions.ErrLiveIndexDisabled, http.StatusNotImplemented, "live_index_disabled", "error.live_index_disabled"},
	{drivers.ErrProfileInvalid, http.StatusBadRequest, "profile_invalid", "error.profile_invalid"},
	{store.ErrOTPCooldown, http.StatusTooManyRequests, "otp_cooldown", "error.otp_cooldown"},
	{store.ErrOTPRateLimited, http.StatusTooManyRequests, "otp_rate_limited", "error.otp_rate_limited"},
	{store.ErrOTPInvalid, http.StatusUnauthorized, "otp_invalid", "error.otp_invalid"},
	{store.ErrOTPExpired, http.StatusUnauthorized, "otp_expired", "error.otp_expired"},
	{store.ErrOTPMaxAttempts, http.StatusTooManyRequests, "otp_max_attempts", "error.otp_max_attempts"},
}

// fail writes the error response for err. Unknown errors are logged and
// reported as 500 without detail.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	lang := mw.Lang(c)
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Error(err))
			}
			resp.Error(c, m.status, m.code, i18n.T(lang, m.key))
			return
		}
	}
	logger.Error("unhandled error",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(mw.CtxRequestID)),
		zap.Error(err),
	)
	resp.Error(c, http.StatusInternalServerError, "internal", i18n.T(lang, "error.internal"))
}

func badPayload(c *gin.Context) {
	resp.Error(c, http.StatusBadRequest, "invalid_payload", i18n.T(mw.Lang(c), "error.invalid_payload"))
}
