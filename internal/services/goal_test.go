package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

func TestCreateGoalQuizModalityEnqueuesGeneration(t *testing.T) {
	h := newServiceHarness(t)
	goalType := testutil.CreateGoalType(t, h.db, types.VerificationTypeQuiz)
	userID := uuid.New()

	goal, err := h.goals.CreateGoal(context.Background(), userID, CreateGoalInput{
		GoalTypeID:   goalType.ID,
		Title:        "Finish Moby Dick",
		UserInput:    "Moby Dick by Herman Melville",
		BountyAmount: 50,
		Deadline:     futureDeadline(),
	})
	require.NoError(t, err)
	assert.Equal(t, types.GoalStatusPending, goal.Status)

	require.Len(t, h.scheduler.enqueued, 1)
	assert.Equal(t, tasks.TaskGenerateQuiz, h.scheduler.enqueued[0].name)
	assert.Equal(t, goal.ID.String(), h.scheduler.enqueued[0].payload["goal_id"])
}

func TestCreateGoalPhotoModalityDoesNotEnqueue(t *testing.T) {
	h := newServiceHarness(t)
	goalType := testutil.CreateGoalType(t, h.db, types.VerificationTypePhoto)

	_, err := h.goals.CreateGoal(context.Background(), uuid.New(), CreateGoalInput{
		GoalTypeID:   goalType.ID,
		Title:        "Clean the garage",
		BountyAmount: 20,
		Deadline:     futureDeadline(),
	})
	require.NoError(t, err)
	assert.Empty(t, h.scheduler.enqueued)
}

func TestCreateGoalValidation(t *testing.T) {
	h := newServiceHarness(t)
	goalType := testutil.CreateGoalType(t, h.db, types.VerificationTypeQuiz)

	cases := []struct {
		name string
		in   CreateGoalInput
	}{
		{"missing title", CreateGoalInput{GoalTypeID: goalType.ID, BountyAmount: 10, Deadline: futureDeadline()}},
		{"zero bounty", CreateGoalInput{GoalTypeID: goalType.ID, Title: "x", BountyAmount: 0, Deadline: futureDeadline()}},
		{"past deadline", CreateGoalInput{GoalTypeID: goalType.ID, Title: "x", BountyAmount: 10, Deadline: time.Now().Add(-time.Hour)}},
		{"unknown goal type", CreateGoalInput{GoalTypeID: uuid.New(), Title: "x", BountyAmount: 10, Deadline: futureDeadline()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.goals.CreateGoal(context.Background(), uuid.New(), tc.in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}

	var count int64
	require.NoError(t, h.db.Model(&types.Goal{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestListGoalTypes(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.goals.ListGoalTypes(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	testutil.CreateGoalType(t, h.db, types.VerificationTypeQuiz)
	goalTypes, err := h.goals.ListGoalTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, goalTypes, 1)
}
