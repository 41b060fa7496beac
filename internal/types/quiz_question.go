package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizQuestion is one generated question/answer pair for a goal. The batch is
// created once per goal by the quiz generation task and is immutable after
// that.
type QuizQuestion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID    uuid.UUID `gorm:"type:uuid;not null;index" json:"goal_id"`
	Goal      *Goal     `gorm:"constraint:OnDelete:CASCADE;foreignKey:GoalID;references:ID" json:"goal,omitempty"`
	Question  string    `gorm:"column:question;not null" json:"question"`
	Answer    string    `gorm:"column:answer;not null" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (QuizQuestion) TableName() string { return "goal_quiz_questions" }

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
