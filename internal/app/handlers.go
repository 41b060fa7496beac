package app

import (
	"github.com/dreamstudio/backend/internal/handlers"
	"github.com/dreamstudio/backend/internal/platform/logger"
)

type Handlers struct {
	Goal         *handlers.GoalHandler
	Verification *handlers.VerificationHandler
}

func wireHandlers(log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Goal:         handlers.NewGoalHandler(log, s.Goal),
		Verification: handlers.NewVerificationHandler(log, s.Verification),
	}
}
