package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
)

const overdueBatchSize = 50

// ScanOverdueGoalsHandler is the 5-minute deadline sweep. Phase one claims a
// bounded batch of overdue goals inside one short transaction; phase two fans
// out a finalize task per claimed goal so external latency never extends the
// claim transaction.
type ScanOverdueGoalsHandler struct {
	log       *logger.Logger
	goals     repos.GoalRepo
	scheduler Scheduler
}

func NewScanOverdueGoalsHandler(baseLog *logger.Logger, goals repos.GoalRepo, scheduler Scheduler) *ScanOverdueGoalsHandler {
	return &ScanOverdueGoalsHandler{
		log:       baseLog.With("task", TaskScanOverdueGoals),
		goals:     goals,
		scheduler: scheduler,
	}
}

func (h *ScanOverdueGoalsHandler) Name() string           { return TaskScanOverdueGoals }
func (h *ScanOverdueGoalsHandler) MaxAttempts() int       { return 4 }
func (h *ScanOverdueGoalsHandler) Backoff() time.Duration { return 30 * time.Second }

func (h *ScanOverdueGoalsHandler) Run(ctx context.Context, _ map[string]any) error {
	claimed, err := h.goals.ClaimOverdue(ctx, nil, time.Now().UTC(), overdueBatchSize)
	if err != nil {
		return fmt.Errorf("claim overdue goals: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	h.log.Info("Claimed overdue goals", "count", len(claimed))
	for _, goalID := range claimed {
		if err := h.scheduler.Enqueue(ctx, TaskFinalizeGoal, map[string]any{"goal_id": goalID.String()}); err != nil {
			return fmt.Errorf("enqueue finalize for goal %s: %w", goalID, err)
		}
	}
	return nil
}
