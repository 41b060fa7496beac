package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/temporalx"
	"github.com/dreamstudio/backend/internal/temporalx/temporalworker"
)

type Tasks struct {
	Registry  *tasks.Registry
	Scheduler tasks.Scheduler

	// Non-nil only when running against a Temporal cluster.
	Worker *temporalworker.Runner
	// Non-nil only when running without one.
	Inline *tasks.InlineScheduler
}

func wireTasks(db *gorm.DB, log *logger.Logger, r Repos, clients Clients) (Tasks, error) {
	log.Info("Wiring tasks...")

	registry := tasks.NewRegistry()

	var out Tasks
	out.Registry = registry

	if clients.Temporal != nil {
		scheduler, err := temporalx.NewScheduler(log, clients.Temporal, r.TaskRun, registry)
		if err != nil {
			return Tasks{}, fmt.Errorf("init temporal scheduler: %w", err)
		}
		worker, err := temporalworker.NewRunner(log, clients.Temporal, r.TaskRun, registry)
		if err != nil {
			return Tasks{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.Scheduler = scheduler
		out.Worker = worker
	} else {
		log.Warn("TEMPORAL_ADDRESS not set, running tasks on the inline scheduler")
		inline := tasks.NewInlineScheduler(log, registry, r.TaskRun)
		out.Scheduler = inline
		out.Inline = inline
	}

	handlers := []tasks.Handler{
		tasks.NewGenerateQuizHandler(log, db, r.Goal, r.QuizQuestion, clients.Openai),
		tasks.NewEvaluatePhotoHandler(log, db, r.Goal, r.Verification, r.VerificationPhoto, clients.Openai, clients.Storage),
		tasks.NewScanOverdueGoalsHandler(log, r.Goal, out.Scheduler),
		tasks.NewFinalizeGoalHandler(log, r.Goal),
		tasks.NewCleanupVerificationsHandler(log, r.Verification),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Tasks{}, fmt.Errorf("register task handler: %w", err)
		}
	}

	return out, nil
}
