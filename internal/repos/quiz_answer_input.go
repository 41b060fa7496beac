package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/types"
)

type QuizAnswerInputRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, inputs []*types.QuizAnswerInput) error
	GetByVerificationID(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID) ([]*types.QuizAnswerInput, error)
}

type quizAnswerInputRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAnswerInputRepo(db *gorm.DB, baseLog *logger.Logger) QuizAnswerInputRepo {
	return &quizAnswerInputRepo{db: db, log: baseLog.With("repo", "QuizAnswerInputRepo")}
}

func (r *quizAnswerInputRepo) CreateBatch(ctx context.Context, tx *gorm.DB, inputs []*types.QuizAnswerInput) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(inputs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&inputs).Error
}

func (r *quizAnswerInputRepo) GetByVerificationID(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID) ([]*types.QuizAnswerInput, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QuizAnswerInput
	if err := transaction.WithContext(ctx).
		Where("verification_id = ?", verificationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
