package taskflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/temporalx/taskflow"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

type countingHandler struct {
	mu       sync.Mutex
	name     string
	max      int
	failures int
	fatal    bool
	calls    int
}

func (h *countingHandler) Name() string           { return h.name }
func (h *countingHandler) MaxAttempts() int       { return h.max }
func (h *countingHandler) Backoff() time.Duration { return time.Second }

func (h *countingHandler) Run(ctx context.Context, payload map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.fatal {
		return tasks.Fatal(errors.New("broken payload"))
	}
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func (h *countingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type workflowHarness struct {
	env     *testsuite.TestWorkflowEnvironment
	db      *gorm.DB
	runs    repos.TaskRunRepo
	handler *countingHandler
}

func newWorkflowHarness(t *testing.T, handler *countingHandler) *workflowHarness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	runs := repos.NewTaskRunRepo(db, log)
	registry := tasks.NewRegistry()
	require.NoError(t, registry.Register(handler))

	acts := &taskflow.Activities{Log: log, Runs: runs, Registry: registry}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(taskflow.Workflow, workflow.RegisterOptions{Name: taskflow.WorkflowName})
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: taskflow.ActivityExecute})
	env.RegisterActivityWithOptions(acts.Record, activity.RegisterOptions{Name: taskflow.ActivityRecord})
	env.RegisterActivityWithOptions(acts.MarkDead, activity.RegisterOptions{Name: taskflow.ActivityMarkDead})

	return &workflowHarness{env: env, db: db, runs: runs, handler: handler}
}

func (h *workflowHarness) queueRun(t *testing.T, taskName string, maxAttempts int) uuid.UUID {
	t.Helper()
	run := &types.TaskRun{TaskName: taskName, Status: types.TaskRunStatusQueued, MaxAttempts: maxAttempts}
	require.NoError(t, h.runs.Create(context.Background(), nil, run))
	return run.ID
}

func TestWorkflowSucceedsFirstAttempt(t *testing.T) {
	handler := &countingHandler{name: "wf_ok", max: 3}
	h := newWorkflowHarness(t, handler)
	runID := h.queueRun(t, handler.name, handler.max)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{
		RunID:          runID.String(),
		TaskName:       handler.name,
		MaxAttempts:    handler.max,
		BackoffSeconds: 1,
	})

	require.True(t, h.env.IsWorkflowCompleted())
	require.NoError(t, h.env.GetWorkflowError())
	assert.Equal(t, 1, handler.callCount())

	run, err := h.runs.GetByID(context.Background(), nil, runID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskRunStatusSucceeded, run.Status)
}

func TestWorkflowRetriesWithFixedBackoff(t *testing.T) {
	handler := &countingHandler{name: "wf_retry", max: 4, failures: 2}
	h := newWorkflowHarness(t, handler)
	runID := h.queueRun(t, handler.name, handler.max)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{
		RunID:          runID.String(),
		TaskName:       handler.name,
		MaxAttempts:    handler.max,
		BackoffSeconds: 1,
	})

	require.True(t, h.env.IsWorkflowCompleted())
	require.NoError(t, h.env.GetWorkflowError())
	assert.Equal(t, 3, handler.callCount())

	run, err := h.runs.GetByID(context.Background(), nil, runID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskRunStatusSucceeded, run.Status)
}

func TestWorkflowDeadLettersAfterExhaustion(t *testing.T) {
	handler := &countingHandler{name: "wf_exhaust", max: 2, failures: 10}
	h := newWorkflowHarness(t, handler)
	runID := h.queueRun(t, handler.name, handler.max)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{
		RunID:          runID.String(),
		TaskName:       handler.name,
		MaxAttempts:    handler.max,
		BackoffSeconds: 1,
	})

	require.True(t, h.env.IsWorkflowCompleted())
	require.Error(t, h.env.GetWorkflowError())
	assert.Equal(t, 2, handler.callCount())

	run, err := h.runs.GetByID(context.Background(), nil, runID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskRunStatusDead, run.Status)
}

func TestWorkflowFatalErrorSkipsRetries(t *testing.T) {
	handler := &countingHandler{name: "wf_fatal", max: 5, fatal: true}
	h := newWorkflowHarness(t, handler)
	runID := h.queueRun(t, handler.name, handler.max)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{
		RunID:          runID.String(),
		TaskName:       handler.name,
		MaxAttempts:    handler.max,
		BackoffSeconds: 1,
	})

	require.True(t, h.env.IsWorkflowCompleted())
	require.Error(t, h.env.GetWorkflowError())
	assert.Equal(t, 1, handler.callCount())

	run, err := h.runs.GetByID(context.Background(), nil, runID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskRunStatusDead, run.Status)
}

func TestWorkflowRecordsRunForCronFiring(t *testing.T) {
	handler := &countingHandler{name: "wf_cron", max: 3}
	h := newWorkflowHarness(t, handler)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{
		TaskName:       handler.name,
		MaxAttempts:    handler.max,
		BackoffSeconds: 1,
	})

	require.True(t, h.env.IsWorkflowCompleted())
	require.NoError(t, h.env.GetWorkflowError())
	assert.Equal(t, 1, handler.callCount())

	run := &types.TaskRun{}
	require.NoError(t, h.db.Where("task_name = ?", handler.name).First(run).Error)
	assert.Equal(t, types.TaskRunStatusSucceeded, run.Status)
	assert.Equal(t, handler.max, run.MaxAttempts)
}

func TestWorkflowRejectsMissingTaskName(t *testing.T) {
	handler := &countingHandler{name: "wf_unused", max: 3}
	h := newWorkflowHarness(t, handler)

	h.env.ExecuteWorkflow(taskflow.WorkflowName, taskflow.Input{MaxAttempts: 1})

	require.True(t, h.env.IsWorkflowCompleted())
	require.Error(t, h.env.GetWorkflowError())
	assert.Equal(t, 0, handler.callCount())
}
