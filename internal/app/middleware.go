package app

import (
	"github.com/dreamstudio/backend/internal/middleware"
	"github.com/dreamstudio/backend/internal/platform/logger"
)

type Middleware struct {
	Auth      *middleware.AuthMiddleware
	RateLimit *middleware.RateLimitMiddleware
}

func wireMiddleware(log *logger.Logger, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:      middleware.NewAuthMiddleware(log),
		RateLimit: middleware.NewRateLimitMiddleware(log, clients.Redis),
	}
}
