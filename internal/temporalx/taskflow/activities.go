package taskflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/types"
)

type Activities struct {
	Log      *logger.Logger
	Runs     repos.TaskRunRepo
	Registry *tasks.Registry
}

// Record creates the run row for deliveries that arrive without one (cron
// firings). Returns the new run id.
func (a *Activities) Record(ctx context.Context, in Input) (string, error) {
	if a == nil || a.Runs == nil {
		return "", fmt.Errorf("taskflow: activity not configured")
	}

	raw, err := json.Marshal(in.Payload)
	if err != nil {
		return "", fmt.Errorf("taskflow: marshal payload: %w", err)
	}
	run := &types.TaskRun{
		TaskName:    in.TaskName,
		Payload:     datatypes.JSON(raw),
		Status:      types.TaskRunStatusQueued,
		MaxAttempts: in.MaxAttempts,
	}
	if err := a.Runs.Create(ctx, nil, run); err != nil {
		return "", err
	}
	return run.ID.String(), nil
}

// Execute runs one delivery attempt of the named task.
func (a *Activities) Execute(ctx context.Context, in Input) error {
	if a == nil || a.Runs == nil || a.Registry == nil {
		return fmt.Errorf("taskflow: activity not configured")
	}

	h, ok := a.Registry.Get(in.TaskName)
	if !ok {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no handler registered for task=%s", in.TaskName), ErrTypeFatal, nil)
	}

	runID, err := uuid.Parse(strings.TrimSpace(in.RunID))
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid run_id %q", in.RunID), ErrTypeFatal, err)
	}

	if err := a.Runs.MarkRunning(ctx, nil, runID); err != nil {
		a.Log.Warn("Failed to mark task run running", "task", in.TaskName, "run_id", runID, "error", err)
	}

	runErr := a.runHandler(ctx, h, in.Payload)
	if runErr == nil {
		if err := a.Runs.MarkSucceeded(ctx, nil, runID); err != nil {
			a.Log.Warn("Failed to mark task run succeeded", "task", in.TaskName, "run_id", runID, "error", err)
		}
		return nil
	}

	if err := a.Runs.MarkFailed(ctx, nil, runID, runErr.Error()); err != nil {
		a.Log.Warn("Failed to mark task run failed", "task", in.TaskName, "run_id", runID, "error", err)
	}
	if tasks.IsFatal(runErr) {
		return temporal.NewNonRetryableApplicationError(runErr.Error(), ErrTypeFatal, runErr)
	}
	return runErr
}

func (a *Activities) MarkDead(ctx context.Context, runID string, taskErr string) error {
	if a == nil || a.Runs == nil {
		return fmt.Errorf("taskflow: activity not configured")
	}
	id, err := uuid.Parse(strings.TrimSpace(runID))
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid run_id %q", runID), ErrTypeFatal, err)
	}
	return a.Runs.MarkDead(ctx, nil, id, taskErr)
}

func (a *Activities) runHandler(ctx context.Context, h tasks.Handler, payload map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Log.Error("Task handler panic", "task", h.Name(), "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Run(ctx, payload)
}
