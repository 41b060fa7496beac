package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Verification attempt result.
const (
	VerificationResultPending  = "pending"
	VerificationResultApproved = "approved"
	VerificationResultRejected = "rejected"
)

// Verification is one evidence-submission attempt for a goal. A goal may
// accumulate several over time (a rejected photo can be re-attempted), but at
// most one photo verification is pending at a time.
type Verification struct {
	ID        uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"goal_id"`
	Goal      *Goal              `gorm:"constraint:OnDelete:CASCADE;foreignKey:GoalID;references:ID" json:"goal,omitempty"`
	Type      string             `gorm:"column:type;not null" json:"type"`
	Result    string             `gorm:"column:result;not null;default:pending;index" json:"result"`
	Photo     *VerificationPhoto `gorm:"foreignKey:VerificationID;references:ID" json:"photo,omitempty"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Verification) TableName() string { return "verifications" }

func (v *Verification) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
