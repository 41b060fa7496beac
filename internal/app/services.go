package app

import (
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/services"
)

type Services struct {
	Goal         services.GoalService
	Verification services.VerificationService
}

func wireServices(db *gorm.DB, log *logger.Logger, r Repos, clients Clients, t Tasks) Services {
	log.Info("Wiring services...")

	goalService := services.NewGoalService(log, r.Goal, r.GoalType, t.Scheduler)
	verificationService := services.NewVerificationService(
		log,
		db,
		r.Goal,
		r.QuizQuestion,
		r.QuizAnswerInput,
		r.Verification,
		r.VerificationPhoto,
		clients.Storage,
		t.Scheduler,
	)

	return Services{
		Goal:         goalService,
		Verification: verificationService,
	}
}
