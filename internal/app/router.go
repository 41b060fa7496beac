package app

import (
	"github.com/gin-gonic/gin"

	"github.com/dreamstudio/backend/internal/server"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		GoalHandler:         handlers.Goal,
		VerificationHandler: handlers.Verification,
		AuthMiddleware:      middleware.Auth,
		RateLimitMiddleware: middleware.RateLimit,
	})
}
