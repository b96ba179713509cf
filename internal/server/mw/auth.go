package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/security"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
)

const CtxDriverID = "driver_id"

// RequireDriver accepts the access token in X-User-Token or as a Bearer token.
func RequireDriver(jwtm *security.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserToken))
		if raw == "" {
			raw = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		}
		if raw == "" {
			resp.Abort(c, http.StatusUnauthorized, "missing_token", i18n.T(Lang(c), "error.unauthorized"))
			return
		}
		id, role, err := jwtm.ParseAccess(raw)
		if err != nil || id == uuid.Nil || role != security.RoleDriver {
			resp.Abort(c, http.StatusUnauthorized, "invalid_token", i18n.T(Lang(c), "error.unauthorized"))
			return
		}
		c.Set(CtxDriverID, id)
		c.Next()
	}
}

// DriverID returns the id set by RequireDriver.
func DriverID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxDriverID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
