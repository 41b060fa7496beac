package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/types"
)

type GoalTypeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, goalType *types.GoalType) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GoalType, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.GoalType, error)
}

type goalTypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGoalTypeRepo(db *gorm.DB, baseLog *logger.Logger) GoalTypeRepo {
	return &goalTypeRepo{db: db, log: baseLog.With("repo", "GoalTypeRepo")}
}

func (r *goalTypeRepo) Create(ctx context.Context, tx *gorm.DB, goalType *types.GoalType) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(goalType).Error
}

func (r *goalTypeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GoalType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var gt types.GoalType
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&gt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gt, nil
}

func (r *goalTypeRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.GoalType, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GoalType
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
