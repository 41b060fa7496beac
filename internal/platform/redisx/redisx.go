package redisx

import (
	"github.com/redis/go-redis/v9"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/utils"
)

// NewClient builds a Redis client from the environment. Returns nil when
// REDIS_ADDR is unset; callers treat a nil client as "feature disabled".
func NewClient(log *logger.Logger) *redis.Client {
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		log.Warn("REDIS_ADDR not set; rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
	})
}
