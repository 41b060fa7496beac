package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/testutil"
	"github.com/dreamstudio/backend/internal/types"
)

type enqueuedTask struct {
	name    string
	payload map[string]any
}

type recorderScheduler struct {
	enqueued []enqueuedTask
}

func (r *recorderScheduler) Enqueue(_ context.Context, name string, payload map[string]any) error {
	r.enqueued = append(r.enqueued, enqueuedTask{name: name, payload: payload})
	return nil
}

func (r *recorderScheduler) Schedule(_ context.Context, _ string, _ string) error { return nil }

type fakeStorage struct {
	existing map[string]bool
}

func (f *fakeStorage) BuildKey(userID, verificationID, ext string) string {
	return fmt.Sprintf("verifications/%s/%s/photo%s", userID, verificationID, ext)
}

func (f *fakeStorage) BuildURI(key string) string { return "s3://test-bucket/" + key }

func (f *fakeStorage) ParseURI(uri string) string {
	if !strings.HasPrefix(uri, "s3://test-bucket/") {
		return ""
	}
	return strings.TrimPrefix(uri, "s3://test-bucket/")
}

func (f *fakeStorage) PresignPut(_ context.Context, key, _ string) (string, error) {
	return "https://upload.test/" + key, nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string) (string, error) {
	return "https://view.test/" + key, nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	return f.existing[key], nil
}

type serviceHarness struct {
	db        *gorm.DB
	scheduler *recorderScheduler
	storage   *fakeStorage
	goals     GoalService
	verify    VerificationService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := logger.NewNop()
	scheduler := &recorderScheduler{}
	storage := &fakeStorage{existing: map[string]bool{}}

	goalRepo := repos.NewGoalRepo(db, log)
	goalTypeRepo := repos.NewGoalTypeRepo(db, log)
	questionRepo := repos.NewQuizQuestionRepo(db, log)
	answerRepo := repos.NewQuizAnswerInputRepo(db, log)
	verificationRepo := repos.NewVerificationRepo(db, log)
	photoRepo := repos.NewVerificationPhotoRepo(db, log)

	return &serviceHarness{
		db:        db,
		scheduler: scheduler,
		storage:   storage,
		goals:     NewGoalService(log, goalRepo, goalTypeRepo, scheduler),
		verify: NewVerificationService(log, db, goalRepo, questionRepo, answerRepo,
			verificationRepo, photoRepo, storage, scheduler),
	}
}

func seedQuizQuestions(t *testing.T, db *gorm.DB, goalID uuid.UUID, pairs map[string]string) map[string]uuid.UUID {
	t.Helper()
	ids := make(map[string]uuid.UUID, len(pairs))
	for question, answer := range pairs {
		q := &types.QuizQuestion{GoalID: goalID, Question: question, Answer: answer}
		require.NoError(t, db.Create(q).Error)
		ids[question] = q.ID
	}
	return ids
}

func futureDeadline() time.Time { return time.Now().Add(48 * time.Hour) }
