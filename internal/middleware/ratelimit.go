package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/utils"
)

type RateLimitMiddleware struct {
	log    *logger.Logger
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimitMiddleware(baseLog *logger.Logger, rdb *redis.Client) *RateLimitMiddleware {
	limit := utils.GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 60, baseLog)
	if limit < 1 {
		limit = 60
	}
	return &RateLimitMiddleware{
		log:    baseLog.With("middleware", "RateLimitMiddleware"),
		rdb:    rdb,
		limit:  limit,
		window: time.Minute,
	}
}

// Limit applies a fixed-window per-caller request cap. Without a Redis client
// the middleware is a pass-through, and Redis outages fail open.
func (rl *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s", rl.callerKey(c))
		ctx := c.Request.Context()

		n, err := rl.rdb.Incr(ctx, key).Result()
		if err != nil {
			rl.log.Warn("Rate limit check failed", "error", err)
			c.Next()
			return
		}
		if n == 1 {
			if err := rl.rdb.Expire(ctx, key, rl.window).Err(); err != nil {
				rl.log.Warn("Rate limit expire failed", "key", key, "error", err)
			}
		}
		if n > int64(rl.limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (rl *RateLimitMiddleware) callerKey(c *gin.Context) string {
	if userID, ok := CurrentUserID(c); ok {
		return "user:" + userID.String()
	}
	return "ip:" + c.ClientIP()
}
