package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TaskRun status. A run moves queued -> running -> succeeded, or back to
// failed between attempts; once the retry budget is exhausted it is parked as
// dead for manual inspection.
const (
	TaskRunStatusQueued    = "queued"
	TaskRunStatusRunning   = "running"
	TaskRunStatusSucceeded = "succeeded"
	TaskRunStatusFailed    = "failed"
	TaskRunStatusDead      = "dead"
)

// TaskRun is the durable record of one enqueued background task. The queue
// itself is Temporal; this row exists so operators can see attempts, errors
// and dead-lettered work without spelunking workflow histories.
type TaskRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskName    string         `gorm:"column:task_name;not null;index" json:"task_name"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	Status      string         `gorm:"column:status;not null;default:queued;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts int            `gorm:"column:max_attempts;not null;default:1" json:"max_attempts"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TaskRun) TableName() string { return "task_runs" }

func (t *TaskRun) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
