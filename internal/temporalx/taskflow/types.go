package taskflow

const (
	WorkflowName     = "task_run"
	ActivityExecute  = "task_run_execute"
	ActivityRecord   = "task_run_record"
	ActivityMarkDead = "task_run_mark_dead"
)

// ErrTypeFatal is the application-error type used for non-retryable task
// failures; the activity retry policy lists it so the budget is not consumed.
const ErrTypeFatal = "TaskFatal"

// Input carries one task delivery. RunID is empty for cron firings; the
// workflow records a run row before dispatching in that case.
type Input struct {
	RunID          string         `json:"run_id,omitempty"`
	TaskName       string         `json:"task_name"`
	Payload        map[string]any `json:"payload,omitempty"`
	MaxAttempts    int            `json:"max_attempts"`
	BackoffSeconds int            `json:"backoff_seconds"`
}
