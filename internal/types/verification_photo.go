package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationPhoto is the single photo attached to a photo verification.
// Metadata starts as whatever the client sent at upload-confirm time and is
// extended with the AI verdict after grading.
type VerificationPhoto struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	VerificationID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"verification_id"`
	Verification   *Verification  `gorm:"constraint:OnDelete:CASCADE;foreignKey:VerificationID;references:ID" json:"verification,omitempty"`
	ImageURL       string         `gorm:"column:image_url;not null" json:"image_url"`
	S3Key          string         `gorm:"column:s3_key;not null" json:"s3_key"`
	Metadata       datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (VerificationPhoto) TableName() string { return "verification_photos" }

// SetMetadata replaces the metadata column with the given map.
func (p *VerificationPhoto) SetMetadata(meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	p.Metadata = datatypes.JSON(raw)
	return nil
}

func (p *VerificationPhoto) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
