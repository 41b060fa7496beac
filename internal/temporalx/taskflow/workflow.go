package taskflow

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow delivers one task with the task's own retry policy. Backoff is
// fixed (coefficient 1.0), retries re-run the dispatch activity with fresh
// entity state, and exhaustion or a fatal error parks the run as dead.
func Workflow(ctx workflow.Context, in Input) error {
	if strings.TrimSpace(in.TaskName) == "" {
		return fmt.Errorf("taskflow: missing task_name")
	}

	if strings.TrimSpace(in.RunID) == "" {
		recordCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		})
		var runID string
		if err := workflow.ExecuteActivity(recordCtx, ActivityRecord, in).Get(ctx, &runID); err != nil {
			return err
		}
		in.RunID = runID
	}

	backoff := time.Duration(in.BackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = time.Second
	}
	maxAttempts := in.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	execCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        backoff,
			BackoffCoefficient:     1.0,
			MaximumInterval:        backoff,
			MaximumAttempts:        int32(maxAttempts),
			NonRetryableErrorTypes: []string{ErrTypeFatal},
		},
	})

	execErr := workflow.ExecuteActivity(execCtx, ActivityExecute, in).Get(ctx, nil)
	if execErr == nil {
		return nil
	}

	deadCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	if markErr := workflow.ExecuteActivity(deadCtx, ActivityMarkDead, in.RunID, execErr.Error()).Get(ctx, nil); markErr != nil {
		workflow.GetLogger(ctx).Error("Failed to mark task run dead", "run_id", in.RunID, "error", markErr)
	}
	return execErr
}
