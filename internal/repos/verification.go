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

type VerificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, verification *types.Verification) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Verification, error)
	// GetWithGoal loads the verification joined with its goal and goal type.
	GetWithGoal(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Verification, error)
	GetPendingPhotoForGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (*types.Verification, error)
	SetResult(ctx context.Context, tx *gorm.DB, id uuid.UUID, result string) error
	// DeleteAbandonedPhotos removes up to limit photo verifications that are
	// still pending, older than cutoff, and have no VerificationPhoto row.
	DeleteAbandonedPhotos(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type verificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVerificationRepo(db *gorm.DB, baseLog *logger.Logger) VerificationRepo {
	return &verificationRepo{db: db, log: baseLog.With("repo", "VerificationRepo")}
}

func (r *verificationRepo) Create(ctx context.Context, tx *gorm.DB, verification *types.Verification) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(verification).Error
}

func (r *verificationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Verification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.Verification
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepo) GetWithGoal(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Verification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.Verification
	err := transaction.WithContext(ctx).
		Preload("Goal").
		Preload("Goal.GoalType").
		Preload("Photo").
		Where("id = ?", id).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepo) GetPendingPhotoForGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (*types.Verification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.Verification
	err := transaction.WithContext(ctx).
		Where("goal_id = ? AND type = ? AND result = ?", goalID, types.VerificationTypePhoto, types.VerificationResultPending).
		Order("created_at DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepo) SetResult(ctx context.Context, tx *gorm.DB, id uuid.UUID, result string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Verification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"result":     result,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *verificationRepo) DeleteAbandonedPhotos(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return 0, nil
	}

	var deleted int64
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		photoIDs := txx.Model(&types.VerificationPhoto{}).Select("verification_id")

		var staleIDs []uuid.UUID
		if err := txx.Model(&types.Verification{}).
			Where("type = ? AND result = ? AND created_at < ?", types.VerificationTypePhoto, types.VerificationResultPending, cutoff).
			Where("id NOT IN (?)", photoIDs).
			Order("created_at ASC").
			Limit(limit).
			Pluck("id", &staleIDs).Error; err != nil {
			return err
		}
		if len(staleIDs) == 0 {
			return nil
		}

		res := txx.Where("id IN ?", staleIDs).Delete(&types.Verification{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
