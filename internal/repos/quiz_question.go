package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/types"
)

type QuizQuestionRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) error
	GetByGoalID(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.QuizQuestion, error)
	ExistsForGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (bool, error)
}

type quizQuestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuizQuestionRepo {
	return &quizQuestionRepo{db: db, log: baseLog.With("repo", "QuizQuestionRepo")}
}

func (r *quizQuestionRepo) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*types.QuizQuestion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(questions) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&questions).Error
}

func (r *quizQuestionRepo) GetByGoalID(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) ([]*types.QuizQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QuizQuestion
	if err := transaction.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizQuestionRepo) ExistsForGoal(ctx context.Context, tx *gorm.DB, goalID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuizQuestion{}).
		Where("goal_id = ?", goalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
