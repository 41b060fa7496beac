package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Verification modality, fixed at goal-type granularity.
const (
	VerificationTypePhoto = "photo"
	VerificationTypeQuiz  = "quiz"
)

// GoalType is the verification policy template a goal references: it decides
// whether evidence is a photo or a generated comprehension quiz, and for quiz
// goals carries the question count and the prompt template.
type GoalType struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string         `gorm:"column:name;not null" json:"name"`
	Description      string         `gorm:"column:description" json:"description"`
	VerificationType string         `gorm:"column:verification_type;not null" json:"verification_type"`
	QuestionCount    int            `gorm:"column:question_count;not null;default:10" json:"question_count"`
	Prompt           string         `gorm:"column:prompt" json:"prompt"`
	Metadata         datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GoalType) TableName() string { return "goal_types" }

func (gt *GoalType) BeforeCreate(tx *gorm.DB) error {
	if gt.ID == uuid.Nil {
		gt.ID = uuid.New()
	}
	return nil
}

// RenderPrompt substitutes the ${count} and ${passage} placeholders of the
// prompt template.
func (gt *GoalType) RenderPrompt(passage string) string {
	p := strings.ReplaceAll(gt.Prompt, "${count}", strconv.Itoa(gt.QuestionCount))
	return strings.ReplaceAll(p, "${passage}", passage)
}
