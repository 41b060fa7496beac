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

// GoalCurrent is one row of the current-goals listing: a goal joined with its
// most recent verification attempt, if any.
type GoalCurrent struct {
	Goal                   types.Goal `gorm:"embedded"`
	VerificationID         *uuid.UUID `gorm:"column:verification_id"`
	VerificationType       *string    `gorm:"column:verification_type"`
	VerificationResult     *string    `gorm:"column:verification_result"`
	VerificationUpdatedAt  *time.Time `gorm:"column:verification_updated_at"`
}

type GoalRepo interface {
	Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error)
	GetByIDLocked(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error)
	Save(ctx context.Context, tx *gorm.DB, goal *types.Goal) error

	// ClaimQuizGeneration flips quiz_question_status {none,failed} -> pending.
	// The affected-row count is the compare-and-swap signal: false means some
	// other worker already claimed or completed generation.
	ClaimQuizGeneration(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	// SetQuizGenerationStatus records the claim outcome (created or failed).
	SetQuizGenerationStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error

	// ClaimOverdue claims up to limit overdue, unfinalized, pending goals by
	// flipping them to validating, skipping rows locked by a concurrent run.
	ClaimOverdue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]uuid.UUID, error)
	// FinalizeValidating moves a claimed goal to its terminal failed state.
	// Returns false when the goal is no longer in validating (already handled).
	FinalizeValidating(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error)

	CurrentForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*GoalCurrent, error)
}

type goalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) GoalRepo {
	return &goalRepo{db: db, log: baseLog.With("repo", "GoalRepo")}
}

func (r *goalRepo) Create(ctx context.Context, tx *gorm.DB, goal *types.Goal) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(goal).Error
}

func (r *goalRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var goal types.Goal
	err := transaction.WithContext(ctx).
		Preload("GoalType").
		Where("id = ?", id).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) GetByIDLocked(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Goal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var goal types.Goal
	err := forUpdate(transaction.WithContext(ctx), "").
		Where("id = ?", id).
		First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) Save(ctx context.Context, tx *gorm.DB, goal *types.Goal) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	goal.UpdatedAt = time.Now().UTC()
	return transaction.WithContext(ctx).Save(goal).Error
}

func (r *goalRepo) ClaimQuizGeneration(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Goal{}).
		Where("id = ? AND quiz_question_status IN ?", id, []string{types.QuizQuestionStatusNone, types.QuizQuestionStatusFailed}).
		Updates(map[string]interface{}{
			"quiz_question_status": types.QuizQuestionStatusPending,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *goalRepo) SetQuizGenerationStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Goal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quiz_question_status": status,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (r *goalRepo) ClaimOverdue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return nil, nil
	}

	var claimed []uuid.UUID
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var candidates []types.Goal
		q := forUpdate(txx, "SKIP LOCKED").
			Select("id").
			Where("deadline <= ?", now).
			Where("finalized_at IS NULL").
			Where("status = ?", types.GoalStatusPending).
			Order("deadline ASC").
			Limit(limit)
		if err := q.Find(&candidates).Error; err != nil {
			return err
		}
		for _, g := range candidates {
			// The conditional WHERE keeps the flip race-safe even without the
			// row lock above.
			res := txx.Model(&types.Goal{}).
				Where("id = ? AND status = ? AND finalized_at IS NULL", g.ID, types.GoalStatusPending).
				Updates(map[string]interface{}{
					"status":     types.GoalStatusValidating,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				claimed = append(claimed, g.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *goalRepo) FinalizeValidating(ctx context.Context, tx *gorm.DB, id uuid.UUID, now time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Goal{}).
		Where("id = ? AND status = ? AND finalized_at IS NULL", id, types.GoalStatusValidating).
		Updates(map[string]interface{}{
			"status":              types.GoalStatusFinalized,
			"final_status":        types.FinalStatusFailed,
			"verification_status": types.VerificationStatusFailed,
			"finalized_at":        now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *goalRepo) CurrentForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, now time.Time) ([]*GoalCurrent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out []*GoalCurrent
	err := transaction.WithContext(ctx).Raw(`
		SELECT
			g.*,
			v_latest.id         AS verification_id,
			v_latest.type       AS verification_type,
			v_latest.result     AS verification_result,
			v_latest.updated_at AS verification_updated_at
		FROM goals g
		LEFT JOIN LATERAL (
			SELECT v.*
			FROM verifications v
			WHERE v.goal_id = g.id
			ORDER BY v.updated_at DESC
			LIMIT 1
		) v_latest ON TRUE
		WHERE g.deadline >= ?
		  AND g.user_id = ?
		ORDER BY g.deadline ASC
	`, now, userID).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
