package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizAnswerInput records one graded submission for one question. Append-only;
// written by the grading step together with its Verification row.
type QuizAnswerInput struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	VerificationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"verification_id"`
	Verification   *Verification `gorm:"constraint:OnDelete:CASCADE;foreignKey:VerificationID;references:ID" json:"verification,omitempty"`
	QuestionID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"question_id"`
	UserAnswer     string        `gorm:"column:user_answer;not null" json:"user_answer"`
	IsCorrect      bool          `gorm:"column:is_correct;not null" json:"is_correct"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (QuizAnswerInput) TableName() string { return "goal_quiz_answer_inputs" }

func (q *QuizAnswerInput) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
