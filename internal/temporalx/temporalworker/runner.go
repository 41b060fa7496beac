package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/temporalx"
	"github.com/dreamstudio/backend/internal/temporalx/taskflow"
	"github.com/dreamstudio/backend/internal/utils"
)

type Runner struct {
	log      *logger.Logger
	tc       temporalsdkclient.Client
	runs     repos.TaskRunRepo
	registry *tasks.Registry
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, runs repos.TaskRunRepo, registry *tasks.Registry) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if runs == nil || registry == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{log: log, tc: tc, runs: runs, registry: registry}, nil
}

func (r *Runner) Start(ctx context.Context) error {
	cfg := temporalx.LoadConfig()
	r.log.Info("Starting Temporal worker", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	backoff := 250 * time.Millisecond
	deadline := time.Now().Add(time.Minute)

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := r.newWorker(cfg)
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) {
			if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", err)
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("temporal worker start (task_queue=%s): %w", cfg.TaskQueue, startErr)
		}

		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(backoff)
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) newWorker(cfg temporalx.Config) worker.Worker {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", 4, r.log)
	if concurrency < 1 {
		concurrency = 1
	}

	w := worker.New(r.tc, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &taskflow.Activities{
		Log:      r.log,
		Runs:     r.runs,
		Registry: r.registry,
	}
	w.RegisterWorkflowWithOptions(taskflow.Workflow, workflow.RegisterOptions{Name: taskflow.WorkflowName})
	w.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: taskflow.ActivityExecute})
	w.RegisterActivityWithOptions(acts.Record, activity.RegisterOptions{Name: taskflow.ActivityRecord})
	w.RegisterActivityWithOptions(acts.MarkDead, activity.RegisterOptions{Name: taskflow.ActivityMarkDead})
	return w
}
