package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

func newEvaluatePhotoHandler(db *gorm.DB, ai *fakeAI) *EvaluatePhotoHandler {
	log := logger.NewNop()
	return NewEvaluatePhotoHandler(log, db,
		repos.NewGoalRepo(db, log),
		repos.NewVerificationRepo(db, log),
		repos.NewVerificationPhotoRepo(db, log),
		ai, &fakeStorage{})
}

func seedPhotoVerification(t *testing.T, db *gorm.DB) (*types.Goal, *types.Verification) {
	t.Helper()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))
	goal.Status = types.GoalStatusSubmitted
	require.NoError(t, db.Save(goal).Error)

	verification := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)
	photo := &types.VerificationPhoto{
		VerificationID: verification.ID,
		ImageURL:       "s3://test-bucket/verifications/u/v/photo.jpg",
		S3Key:          "verifications/u/v/photo.jpg",
	}
	require.NoError(t, db.Create(photo).Error)
	return goal, verification
}

func TestEvaluatePhotoApproved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	goal, verification := seedPhotoVerification(t, db)

	ai := &fakeAI{imageOut: map[string]any{
		"is_true":    true,
		"confidence": 0.92,
		"reason":     "book visible",
	}}
	h := newEvaluatePhotoHandler(db, ai)

	require.NoError(t, h.Run(context.Background(), map[string]any{"verification_id": verification.ID.String()}))

	var updatedGoal types.Goal
	require.NoError(t, db.First(&updatedGoal, "id = ?", goal.ID).Error)
	assert.Equal(t, types.GoalStatusFinalized, updatedGoal.Status)
	assert.Equal(t, types.VerificationStatusCompleted, updatedGoal.VerificationStatus)
	assert.Equal(t, types.FinalStatusCompleted, updatedGoal.FinalStatus)
	require.NotNil(t, updatedGoal.FinalizedAt)

	var updatedVerification types.Verification
	require.NoError(t, db.First(&updatedVerification, "id = ?", verification.ID).Error)
	assert.Equal(t, types.VerificationResultApproved, updatedVerification.Result)

	require.Len(t, ai.lastImages, 1)
	assert.Equal(t, "https://view.test/verifications/u/v/photo.jpg", ai.lastImages[0].ImageURL)
}

func TestEvaluatePhotoRejectedReopensGoal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	goal, verification := seedPhotoVerification(t, db)

	ai := &fakeAI{imageOut: map[string]any{
		"is_true":    false,
		"confidence": 0.4,
		"reason":     "no book in frame",
	}}
	h := newEvaluatePhotoHandler(db, ai)

	require.NoError(t, h.Run(context.Background(), map[string]any{"verification_id": verification.ID.String()}))

	var updatedGoal types.Goal
	require.NoError(t, db.First(&updatedGoal, "id = ?", goal.ID).Error)
	assert.Equal(t, types.GoalStatusSubmitted, updatedGoal.Status)
	assert.Equal(t, types.VerificationStatusFailed, updatedGoal.VerificationStatus)
	assert.Nil(t, updatedGoal.FinalizedAt)

	var updatedVerification types.Verification
	require.NoError(t, db.First(&updatedVerification, "id = ?", verification.ID).Error)
	assert.Equal(t, types.VerificationResultRejected, updatedVerification.Result)
}

func TestEvaluatePhotoMergesVerdictMetadata(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, verification := seedPhotoVerification(t, db)

	// Existing client metadata must survive the verdict merge.
	require.NoError(t, db.Model(&types.VerificationPhoto{}).
		Where("verification_id = ?", verification.ID).
		Update("metadata", datatypes.JSON(`{"device":"iphone"}`)).Error)

	ai := &fakeAI{imageOut: map[string]any{
		"is_true":    true,
		"confidence": 0.8,
		"reason":     "looks right",
	}}
	h := newEvaluatePhotoHandler(db, ai)
	require.NoError(t, h.Run(context.Background(), map[string]any{"verification_id": verification.ID.String()}))

	var photo types.VerificationPhoto
	require.NoError(t, db.First(&photo, "verification_id = ?", verification.ID).Error)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(photo.Metadata, &meta))
	assert.Equal(t, "iphone", meta["device"])
	verdict, ok := meta["ai_verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test-model", verdict["model"])
	assert.Equal(t, "looks right", verdict["reason"])
}

func TestEvaluatePhotoAlreadyGradedIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, verification := seedPhotoVerification(t, db)
	require.NoError(t, db.Model(&types.Verification{}).
		Where("id = ?", verification.ID).
		Update("result", types.VerificationResultApproved).Error)

	ai := &fakeAI{}
	h := newEvaluatePhotoHandler(db, ai)

	require.NoError(t, h.Run(context.Background(), map[string]any{"verification_id": verification.ID.String()}))
	assert.Equal(t, 0, ai.imageCalls)
}

func TestEvaluatePhotoWithoutPhotoRowIsFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))
	verification := testutil.CreateVerification(t, db, goal.ID, types.VerificationTypePhoto)

	h := newEvaluatePhotoHandler(db, &fakeAI{})
	err := h.Run(context.Background(), map[string]any{"verification_id": verification.ID.String()})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestEvaluatePhotoMissingVerificationIsFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newEvaluatePhotoHandler(db, &fakeAI{})

	err := h.Run(context.Background(), map[string]any{"verification_id": "0db10e9e-4a0e-4a63-b9a1-1b0dbd0ae1cd"})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}
