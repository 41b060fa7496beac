package app

import (
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
)

type Repos struct {
	Goal              repos.GoalRepo
	GoalType          repos.GoalTypeRepo
	QuizQuestion      repos.QuizQuestionRepo
	QuizAnswerInput   repos.QuizAnswerInputRepo
	Verification      repos.VerificationRepo
	VerificationPhoto repos.VerificationPhotoRepo
	TaskRun           repos.TaskRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Goal:              repos.NewGoalRepo(db, log),
		GoalType:          repos.NewGoalTypeRepo(db, log),
		QuizQuestion:      repos.NewQuizQuestionRepo(db, log),
		QuizAnswerInput:   repos.NewQuizAnswerInputRepo(db, log),
		Verification:      repos.NewVerificationRepo(db, log),
		VerificationPhoto: repos.NewVerificationPhotoRepo(db, log),
		TaskRun:           repos.NewTaskRunRepo(db, log),
	}
}
