package mw

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimit is a fixed one-second window per client IP, shared through Redis.
// A Redis outage lets requests through so tracking keeps working.
func RateLimit(rdb *redis.Client, perSecond int, logger *zap.Logger) gin.HandlerFunc {
	limit := strconv.Itoa(perSecond)
	return func(c *gin.Context) {
		if perSecond <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		key := rateLimitKeyPrefix + c.ClientIP() + ":" + strconv.FormatInt(time.Now().Unix(), 10)
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, 2*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("rate limit check skipped", zap.Error(err))
			c.Next()
			return
		}
		if incr.Val() > int64(perSecond) {
			c.Header("Retry-After", "1")
			resp.Abort(c, http.StatusTooManyRequests, "rate_limited", i18n.T(Lang(c), "error.rate_limit"))
			return
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Next()
	}
}
