package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dreamstudio/backend/internal/handlers"
	"github.com/dreamstudio/backend/internal/middleware"
)

type RouterConfig struct {
	GoalHandler         *handlers.GoalHandler
	VerificationHandler *handlers.VerificationHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api/v1")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	protected.Use(cfg.RateLimitMiddleware.Limit())
	// Goals
	protected.POST("/goals", cfg.GoalHandler.CreateGoal)
	protected.GET("/goals/types", cfg.GoalHandler.GetGoalTypes)
	protected.GET("/goals/current", cfg.GoalHandler.GetCurrentGoals)
	// Verifications
	protected.GET("/verifications/type/:goal_id", cfg.VerificationHandler.GetVerificationType)
	protected.POST("/verifications/quiz/submit", cfg.VerificationHandler.SubmitQuiz)
	protected.GET("/verifications/quiz/:goal_id", cfg.VerificationHandler.GetQuiz)
	protected.POST("/verifications/photos/presign", cfg.VerificationHandler.PresignPhotoUpload)
	protected.POST("/verifications/photos/confirm", cfg.VerificationHandler.ConfirmPhotoUpload)
	protected.GET("/verifications/photos/:verification_id", cfg.VerificationHandler.GetPhotoViewURL)
	protected.POST("/verifications/:goal_id", cfg.VerificationHandler.CreateVerification)

	return router
}
