package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

func backdateVerification(t *testing.T, db *gorm.DB, id interface{}, age time.Duration) {
	t.Helper()
	require.NoError(t, db.Model(&types.Verification{}).
		Where("id = ?", id).
		Update("created_at", time.Now().UTC().Add(-age)).Error)
}

func TestCleanupDeletesAbandonedPhotoVerifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	abandoned := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)
	backdateVerification(t, db, abandoned.ID, 25*time.Hour)

	h := NewCleanupVerificationsHandler(log, repos.NewVerificationRepo(db, log))
	require.NoError(t, h.Run(context.Background(), nil))

	var count int64
	require.NoError(t, db.Model(&types.Verification{}).Where("id = ?", abandoned.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCleanupKeepsVerificationsWithEvidence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	withPhoto := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)
	require.NoError(t, db.Create(&types.VerificationPhoto{
		VerificationID: withPhoto.ID,
		ImageURL:       "s3://test-bucket/verifications/u/v/photo.jpg",
		S3Key:          "verifications/u/v/photo.jpg",
	}).Error)
	backdateVerification(t, db, withPhoto.ID, 48*time.Hour)

	h := NewCleanupVerificationsHandler(log, repos.NewVerificationRepo(db, log))
	require.NoError(t, h.Run(context.Background(), nil))

	var count int64
	require.NoError(t, db.Model(&types.Verification{}).Where("id = ?", withPhoto.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCleanupKeepsRecentAndGraded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	recent := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)
	backdateVerification(t, db, recent.ID, time.Hour)

	graded := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)
	backdateVerification(t, db, graded.ID, 48*time.Hour)
	require.NoError(t, db.Model(&types.Verification{}).
		Where("id = ?", graded.ID).
		Update("result", types.VerificationResultRejected).Error)

	h := NewCleanupVerificationsHandler(log, repos.NewVerificationRepo(db, log))
	require.NoError(t, h.Run(context.Background(), nil))

	var count int64
	require.NoError(t, db.Model(&types.Verification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
