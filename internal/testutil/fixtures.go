package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/types"
)

func CreateGoalType(t *testing.T, db *gorm.DB, verificationType string) *types.GoalType {
	t.Helper()

	gt := &types.GoalType{
		Name:             "Read a book",
		Description:      "Finish a book and prove it",
		VerificationType: verificationType,
		QuestionCount:    5,
		Prompt:           "Write ${count} questions about: ${passage}",
	}
	require.NoError(t, db.Create(gt).Error)
	return gt
}

func CreateGoal(t *testing.T, db *gorm.DB, goalType *types.GoalType, deadline time.Time) *types.Goal {
	t.Helper()

	goal := &types.Goal{
		UserID:             uuid.New(),
		GoalTypeID:         goalType.ID,
		Title:              "Finish Moby Dick",
		UserInput:          "Moby Dick by Herman Melville",
		BountyAmount:       50,
		Deadline:           deadline,
		Status:             types.GoalStatusPending,
		QuizQuestionStatus: types.QuizQuestionStatusNone,
		VerificationStatus: types.VerificationStatusNone,
	}
	require.NoError(t, db.Create(goal).Error)
	return goal
}

func CreateVerification(t *testing.T, db *gorm.DB, goalID uuid.UUID, verificationType string) *types.Verification {
	t.Helper()

	v := &types.Verification{
		GoalID: goalID,
		Type:   verificationType,
		Result: types.VerificationResultPending,
	}
	require.NoError(t, db.Create(v).Error)
	return v
}
