package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/types"
)

type TaskRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.TaskRun) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TaskRun, error)
	// MarkRunning records the start of one delivery attempt.
	MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string) error
	// MarkDead parks the run after its retry budget is exhausted.
	MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string) error
	ListDead(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TaskRun, error)
}

type taskRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRunRepo(db *gorm.DB, baseLog *logger.Logger) TaskRunRepo {
	return &taskRunRepo{db: db, log: baseLog.With("repo", "TaskRunRepo")}
}

func (r *taskRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.TaskRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(run).Error
}

func (r *taskRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TaskRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.TaskRun
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *taskRunRepo) MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.TaskRunStatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		}).Error
}

func (r *taskRunRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      types.TaskRunStatusSucceeded,
			"error":       "",
			"finished_at": now,
			"updated_at":  now,
		}).Error
}

func (r *taskRunRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.TaskRunStatusFailed,
			"error":         truncateError(taskErr),
			"last_error_at": now,
			"updated_at":    now,
		}).Error
}

func (r *taskRunRepo) MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, taskErr string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.TaskRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.TaskRunStatusDead,
			"error":         truncateError(taskErr),
			"last_error_at": now,
			"finished_at":   now,
			"updated_at":    now,
		}).Error
}

func (r *taskRunRepo) ListDead(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TaskRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("status = ?", types.TaskRunStatusDead).
		Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.TaskRun
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func truncateError(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max]
}
