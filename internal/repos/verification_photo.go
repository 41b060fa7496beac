package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/types"
)

type VerificationPhotoRepo interface {
	GetByVerificationID(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID) (*types.VerificationPhoto, error)
	// Upsert creates the photo row for a verification or, if the client
	// re-confirmed the upload, replaces key/URL/metadata in place.
	Upsert(ctx context.Context, tx *gorm.DB, photo *types.VerificationPhoto) error
	// MergeMetadata deep-merges delta into the stored metadata map without
	// clobbering unrelated keys.
	MergeMetadata(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID, delta map[string]interface{}) error
}

type verificationPhotoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVerificationPhotoRepo(db *gorm.DB, baseLog *logger.Logger) VerificationPhotoRepo {
	return &verificationPhotoRepo{db: db, log: baseLog.With("repo", "VerificationPhotoRepo")}
}

func (r *verificationPhotoRepo) GetByVerificationID(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID) (*types.VerificationPhoto, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var photo types.VerificationPhoto
	err := transaction.WithContext(ctx).
		Where("verification_id = ?", verificationID).
		First(&photo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *verificationPhotoRepo) Upsert(ctx context.Context, tx *gorm.DB, photo *types.VerificationPhoto) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetByVerificationID(ctx, transaction, photo.VerificationID)
	if err != nil {
		return err
	}
	if existing == nil {
		return transaction.WithContext(ctx).Create(photo).Error
	}
	existing.ImageURL = photo.ImageURL
	existing.S3Key = photo.S3Key
	existing.Metadata = photo.Metadata
	if err := transaction.WithContext(ctx).Save(existing).Error; err != nil {
		return err
	}
	*photo = *existing
	return nil
}

func (r *verificationPhotoRepo) MergeMetadata(ctx context.Context, tx *gorm.DB, verificationID uuid.UUID, delta map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(delta) == 0 {
		return nil
	}

	photo, err := r.GetByVerificationID(ctx, transaction, verificationID)
	if err != nil {
		return err
	}
	if photo == nil {
		return fmt.Errorf("verification photo not found for verification %s", verificationID)
	}

	current := map[string]interface{}{}
	if len(photo.Metadata) > 0 {
		if err := json.Unmarshal(photo.Metadata, &current); err != nil {
			return fmt.Errorf("decode photo metadata: %w", err)
		}
	}
	merged := mergeMaps(current, delta)

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode photo metadata: %w", err)
	}
	return transaction.WithContext(ctx).
		Model(&types.VerificationPhoto{}).
		Where("id = ?", photo.ID).
		Update("metadata", datatypes.JSON(raw)).Error
}

// mergeMaps recursively folds delta into base. Nested maps merge key-by-key;
// scalar and slice values in delta win.
func mergeMaps(base, delta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(delta))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range delta {
		dm, deltaIsMap := v.(map[string]interface{})
		bm, baseIsMap := out[k].(map[string]interface{})
		if deltaIsMap && baseIsMap {
			out[k] = mergeMaps(bm, dm)
			continue
		}
		out[k] = v
	}
	return out
}
