package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	TaskGenerateQuiz                  = "generate_quiz"
	TaskEvaluatePhotoVerification     = "evaluate_photo_verification"
	TaskScanOverdueGoals              = "scan_overdue_goals"
	TaskFinalizeGoal                  = "finalize_goal"
	TaskCleanupAbandonedVerifications = "cleanup_abandoned_verifications"
)

const (
	CronDeadlineScan = "*/5 * * * *"
	CronCleanup      = "0 * * * *"
)

// Scheduler is the enqueue surface used by services and periodic triggers.
// Enqueue is fire-and-forget with at-least-once delivery; handlers must be
// idempotent or claim their unit of work before mutating.
type Scheduler interface {
	Enqueue(ctx context.Context, name string, payload map[string]any) error
	Schedule(ctx context.Context, name string, cron string) error
}

// Handler executes one task type. MaxAttempts is the total delivery budget
// (first attempt included); Backoff is the fixed delay between attempts.
type Handler interface {
	Name() string
	MaxAttempts() int
	Backoff() time.Duration
	Run(ctx context.Context, payload map[string]any) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler Name() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for task=%s", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks an error as non-retryable. The scheduler dead-letters the task
// immediately instead of consuming the remaining retry budget.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
