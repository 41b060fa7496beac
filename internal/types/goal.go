package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal lifecycle status.
const (
	GoalStatusPending    = "pending"
	GoalStatusValidating = "validating"
	GoalStatusSubmitted  = "submitted"
	GoalStatusCanceled   = "canceled"
	GoalStatusFinalized  = "finalized"
)

// Quiz generation progress for quiz-modality goals.
const (
	QuizQuestionStatusNone    = "none"
	QuizQuestionStatusPending = "pending"
	QuizQuestionStatusCreated = "created"
	QuizQuestionStatusFailed  = "failed"
)

// Outcome of the most recent verification attempt.
const (
	VerificationStatusNone      = "none"
	VerificationStatusCompleted = "completed"
	VerificationStatusFailed    = "failed"
)

// Terminal outcome once a goal is finalized.
const (
	FinalStatusCompleted = "completed"
	FinalStatusFailed    = "failed"
)

type Goal struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	GoalTypeID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"goal_type_id"`
	GoalType           *GoalType  `gorm:"foreignKey:GoalTypeID;references:ID" json:"goal_type,omitempty"`
	Title              string     `gorm:"column:title;not null" json:"title"`
	Description        string     `gorm:"column:description" json:"description"`
	UserInput          string     `gorm:"column:user_input" json:"user_input"`
	BountyAmount       int        `gorm:"column:bounty_amount;not null" json:"bounty_amount"`
	Deadline           time.Time  `gorm:"column:deadline;not null;index" json:"deadline"`
	Status             string     `gorm:"column:status;not null;default:pending;index" json:"status"`
	QuizQuestionStatus string     `gorm:"column:quiz_question_status;not null;default:none" json:"quiz_question_status"`
	VerificationStatus string     `gorm:"column:verification_status;not null;default:none" json:"verification_status"`
	FinalStatus        string     `gorm:"column:final_status" json:"final_status,omitempty"`
	FinalizedAt        *time.Time `gorm:"column:finalized_at" json:"finalized_at,omitempty"`
	CreatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Goal) TableName() string { return "goals" }

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
