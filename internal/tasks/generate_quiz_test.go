package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

func TestGenerateQuizCreatesQuestions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypeQuiz)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	ai := &fakeAI{jsonOut: map[string]any{
		"questions": []any{"Who wrote it?", "What is the whale's name?"},
		"answers":   []any{"Herman Melville", "Moby Dick"},
	}}
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), ai)

	err := h.Run(context.Background(), map[string]any{"goal_id": goal.ID.String()})
	require.NoError(t, err)

	var questions []types.QuizQuestion
	require.NoError(t, db.Where("goal_id = ?", goal.ID).Order("question").Find(&questions).Error)
	require.Len(t, questions, 2)
	assert.Equal(t, "Herman Melville", questions[1].Answer)

	var updated types.Goal
	require.NoError(t, db.First(&updated, "id = ?", goal.ID).Error)
	assert.Equal(t, types.QuizQuestionStatusCreated, updated.QuizQuestionStatus)
	assert.Equal(t, 1, ai.jsonCalls)
}

func TestGenerateQuizSecondDeliveryIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypeQuiz)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	ai := &fakeAI{jsonOut: map[string]any{
		"questions": []any{"Who wrote it?"},
		"answers":   []any{"Herman Melville"},
	}}
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), ai)

	payload := map[string]any{"goal_id": goal.ID.String()}
	require.NoError(t, h.Run(context.Background(), payload))
	require.NoError(t, h.Run(context.Background(), payload))

	var count int64
	require.NoError(t, db.Model(&types.QuizQuestion{}).Where("goal_id = ?", goal.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 1, ai.jsonCalls)
}

func TestGenerateQuizLengthMismatchFailsBeforePersisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypeQuiz)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	ai := &fakeAI{jsonOut: map[string]any{
		"questions": []any{"Q1", "Q2", "Q3"},
		"answers":   []any{"A1", "A2"},
	}}
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), ai)

	err := h.Run(context.Background(), map[string]any{"goal_id": goal.ID.String()})
	require.Error(t, err)
	assert.False(t, IsFatal(err))

	var count int64
	require.NoError(t, db.Model(&types.QuizQuestion{}).Where("goal_id = ?", goal.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// The claim is released so a retry can pick the goal back up.
	var updated types.Goal
	require.NoError(t, db.First(&updated, "id = ?", goal.ID).Error)
	assert.Equal(t, types.QuizQuestionStatusFailed, updated.QuizQuestionStatus)
}

func TestGenerateQuizRetryAfterFailureRegenerates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypeQuiz)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))
	require.NoError(t, db.Model(goal).Update("quiz_question_status", types.QuizQuestionStatusFailed).Error)

	ai := &fakeAI{jsonOut: map[string]any{
		"questions": []any{"Q1"},
		"answers":   []any{"A1"},
	}}
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), ai)

	require.NoError(t, h.Run(context.Background(), map[string]any{"goal_id": goal.ID.String()}))

	var updated types.Goal
	require.NoError(t, db.First(&updated, "id = ?", goal.ID).Error)
	assert.Equal(t, types.QuizQuestionStatusCreated, updated.QuizQuestionStatus)
}

func TestGenerateQuizWrongModalityIsFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	goalType := testutil.CreateGoalType(t, db, types.VerificationTypePhoto)
	goal := testutil.CreateGoal(t, db, goalType, time.Now().Add(time.Hour))

	ai := &fakeAI{}
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), ai)

	err := h.Run(context.Background(), map[string]any{"goal_id": goal.ID.String()})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 0, ai.jsonCalls)
}

func TestGenerateQuizBadPayloadIsFatal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	h := NewGenerateQuizHandler(log, db, repos.NewGoalRepo(db, log), repos.NewQuizQuestionRepo(db, log), &fakeAI{})

	err := h.Run(context.Background(), map[string]any{"goal_id": "not-a-uuid"})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}
