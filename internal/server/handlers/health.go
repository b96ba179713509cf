package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
)

// Pinger reports whether the backing services answer.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	logger *zap.Logger
	deps   Pinger
}

func NewHealthHandler(logger *zap.Logger, deps Pinger) *HealthHandler {
	return &HealthHandler{logger: logger, deps: deps}
}

// GET /health is liveness only.
func (h *HealthHandler) Live(c *gin.Context) {
	resp.OK(c, gin.H{"status": "ok"})
}

// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.deps.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		resp.Error(c, http.StatusServiceUnavailable, "not_ready", err.Error())
		return
	}
	resp.OK(c, gin.H{"status": "ready"})
}
