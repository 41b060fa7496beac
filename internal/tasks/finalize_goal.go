package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
)

// FinalizeGoalHandler drives one claimed overdue goal to its terminal failed
// state. The deadline scan already moved the goal to validating; losing that
// precondition here means another delivery finished the job first.
type FinalizeGoalHandler struct {
	log   *logger.Logger
	goals repos.GoalRepo
}

func NewFinalizeGoalHandler(baseLog *logger.Logger, goals repos.GoalRepo) *FinalizeGoalHandler {
	return &FinalizeGoalHandler{
		log:   baseLog.With("task", TaskFinalizeGoal),
		goals: goals,
	}
}

func (h *FinalizeGoalHandler) Name() string           { return TaskFinalizeGoal }
func (h *FinalizeGoalHandler) MaxAttempts() int       { return 4 }
func (h *FinalizeGoalHandler) Backoff() time.Duration { return 30 * time.Second }

func (h *FinalizeGoalHandler) Run(ctx context.Context, payload map[string]any) error {
	goalID, err := payloadUUID(payload, "goal_id")
	if err != nil {
		return Fatal(err)
	}

	finalized, err := h.goals.FinalizeValidating(ctx, nil, goalID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finalize goal %s: %w", goalID, err)
	}
	if !finalized {
		h.log.Info("Goal no longer validating, skipping", "goal_id", goalID)
		return nil
	}

	h.log.Info("Goal finalized as missed", "goal_id", goalID)
	return nil
}
