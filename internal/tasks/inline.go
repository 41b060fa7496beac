package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/types"
)

// InlineScheduler runs tasks in-process, used when no Temporal cluster is
// configured and as the scheduler for tests. Delivery is at-least-once in
// spirit only (a process crash loses queued work), but the retry, backoff,
// and dead-letter semantics match the durable implementation.
type InlineScheduler struct {
	log      *logger.Logger
	registry *Registry
	runs     repos.TaskRunRepo

	sleep func(time.Duration)

	runWG    sync.WaitGroup
	tickWG   sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

func NewInlineScheduler(baseLog *logger.Logger, registry *Registry, runs repos.TaskRunRepo) *InlineScheduler {
	return &InlineScheduler{
		log:      baseLog.With("service", "InlineScheduler"),
		registry: registry,
		runs:     runs,
		sleep:    time.Sleep,
		stop:     make(chan struct{}),
	}
}

func (s *InlineScheduler) Enqueue(ctx context.Context, name string, payload map[string]any) error {
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

	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		s.execute(context.Background(), run.ID.String(), h, payload)
	}()
	return nil
}

func (s *InlineScheduler) Schedule(ctx context.Context, name string, cron string) error {
	if _, ok := s.registry.Get(name); !ok {
		return fmt.Errorf("no handler registered for task=%s", name)
	}
	interval, err := cronInterval(cron)
	if err != nil {
		return fmt.Errorf("schedule task=%s: %w", name, err)
	}

	s.tickWG.Add(1)
	go func() {
		defer s.tickWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.Enqueue(context.Background(), name, nil); err != nil {
					s.log.Warn("Scheduled enqueue failed", "task", name, "error", err)
				}
			}
		}
	}()
	return nil
}

// Wait blocks until all enqueued tasks have reached a terminal state.
func (s *InlineScheduler) Wait() {
	s.runWG.Wait()
}

func (s *InlineScheduler) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.tickWG.Wait()
	s.runWG.Wait()
}

func (s *InlineScheduler) execute(ctx context.Context, runID string, h Handler, payload map[string]any) {
	id, err := uuidParse(runID)
	if err != nil {
		s.log.Error("Invalid task run id", "task", h.Name(), "run_id", runID)
		return
	}

	maxAttempts := h.MaxAttempts()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.runs.MarkRunning(ctx, nil, id); err != nil {
			s.log.Warn("Failed to mark task run running", "task", h.Name(), "run_id", runID, "error", err)
		}

		runErr := s.runOnce(ctx, h, payload)
		if runErr == nil {
			if err := s.runs.MarkSucceeded(ctx, nil, id); err != nil {
				s.log.Warn("Failed to mark task run succeeded", "task", h.Name(), "run_id", runID, "error", err)
			}
			return
		}

		if IsFatal(runErr) || attempt == maxAttempts {
			s.log.Error("Task dead-lettered", "task", h.Name(), "run_id", runID, "attempt", attempt, "error", runErr)
			if err := s.runs.MarkDead(ctx, nil, id, runErr.Error()); err != nil {
				s.log.Warn("Failed to mark task run dead", "task", h.Name(), "run_id", runID, "error", err)
			}
			return
		}

		s.log.Warn("Task attempt failed", "task", h.Name(), "run_id", runID, "attempt", attempt, "error", runErr)
		if err := s.runs.MarkFailed(ctx, nil, id, runErr.Error()); err != nil {
			s.log.Warn("Failed to mark task run failed", "task", h.Name(), "run_id", runID, "error", err)
		}
		s.sleep(h.Backoff())
	}
}

func (s *InlineScheduler) runOnce(ctx context.Context, h Handler, payload map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Task handler panic", "task", h.Name(), "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Run(ctx, payload)
}

// cronInterval maps the two recurring expressions this system uses (every N
// minutes, hourly) onto a plain ticker interval.
func cronInterval(expr string) (time.Duration, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return 0, fmt.Errorf("unsupported cron expression %q", expr)
	}
	for _, f := range fields[1:] {
		if f != "*" {
			return 0, fmt.Errorf("unsupported cron expression %q", expr)
		}
	}
	minute := fields[0]
	switch {
	case minute == "*":
		return time.Minute, nil
	case minute == "0":
		return time.Hour, nil
	case strings.HasPrefix(minute, "*/"):
		n, err := strconv.Atoi(strings.TrimPrefix(minute, "*/"))
		if err != nil || n < 1 || n > 59 {
			return 0, fmt.Errorf("unsupported cron expression %q", expr)
		}
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("unsupported cron expression %q", expr)
	}
}
