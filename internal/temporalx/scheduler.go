package temporalx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/datatypes"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/temporalx/taskflow"
	"github.com/dreamstudio/backend/internal/types"
)

// Scheduler is the durable tasks.Scheduler. Every enqueue records a TaskRun
// row and starts one taskflow workflow carrying the task's retry policy.
type Scheduler struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	runs      repos.TaskRunRepo
	registry  *tasks.Registry
	taskQueue string
}

func NewScheduler(baseLog *logger.Logger, tc temporalsdkclient.Client, runs repos.TaskRunRepo, registry *tasks.Registry) (*Scheduler, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if runs == nil || registry == nil {
		return nil, fmt.Errorf("temporal scheduler missing deps")
	}
	return &Scheduler{
		log:       baseLog.With("service", "TemporalScheduler"),
		tc:        tc,
		runs:      runs,
		registry:  registry,
		taskQueue: LoadConfig().TaskQueue,
	}, nil
}

func (s *Scheduler) Enqueue(ctx context.Context, name string, payload map[string]any) error {
	h, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no handler registered for task=%s", name)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for task=%s: %w", name, err)
	}
	run := &types.TaskRun{
		TaskName:    name,
		Payload:     datatypes.JSON(raw),
		Status:      types.TaskRunStatusQueued,
		MaxAttempts: h.MaxAttempts(),
	}
	if err := s.runs.Create(ctx, nil, run); err != nil {
		return fmt.Errorf("record task run for task=%s: %w", name, err)
	}

	in := taskflow.Input{
		RunID:          run.ID.String(),
		TaskName:       name,
		Payload:        payload,
		MaxAttempts:    h.MaxAttempts(),
		BackoffSeconds: int(h.Backoff() / time.Second),
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("task-%s-%s", name, run.ID),
		TaskQueue: s.taskQueue,
	}
	if _, err := s.tc.ExecuteWorkflow(ctx, opts, taskflow.WorkflowName, in); err != nil {
		return fmt.Errorf("start workflow for task=%s: %w", name, err)
	}
	return nil
}

// Schedule starts a cron workflow for a recurring task. The workflow id is
// stable per task, so re-registering on process restart is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, name string, cron string) error {
	h, ok := s.registry.Get(name)
	if !ok {
		return fmt.Errorf("no handler registered for task=%s", name)
	}

	in := taskflow.Input{
		TaskName:       name,
		MaxAttempts:    h.MaxAttempts(),
		BackoffSeconds: int(h.Backoff() / time.Second),
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:           fmt.Sprintf("cron-%s", name),
		TaskQueue:    s.taskQueue,
		CronSchedule: cron,
	}
	_, err := s.tc.ExecuteWorkflow(ctx, opts, taskflow.WorkflowName, in)
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule task=%s: %w", name, err)
	}
	s.log.Info("Recurring task scheduled", "task", name, "cron", cron)
	return nil
}
