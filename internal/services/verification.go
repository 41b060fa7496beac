package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/platform/s3x"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/types"
)

const passThresholdPercent = 80.0

var allowedPhotoExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type QuizQuestionView struct {
	QuizID   uuid.UUID `json:"quiz_id"`
	Question string    `json:"question"`
}

type QuizSubmission struct {
	QuizID     uuid.UUID `json:"quiz_id"`
	UserAnswer string    `json:"user_answer"`
}

type VerificationTypeResult struct {
	VerificationType string             `json:"verification_type"`
	Questions        []QuizQuestionView `json:"questions,omitempty"`
}

type PresignResult struct {
	UploadURL string `json:"upload_url"`
	S3Key     string `json:"s3_key"`
}

type VerificationService interface {
	VerificationType(ctx context.Context, userID, goalID uuid.UUID) (*VerificationTypeResult, error)
	CreateVerification(ctx context.Context, userID, goalID uuid.UUID) (uuid.UUID, error)
	GetQuiz(ctx context.Context, userID, goalID uuid.UUID) ([]QuizQuestionView, error)
	// SubmitQuiz grades synchronously and returns "pass" or "fail".
	SubmitQuiz(ctx context.Context, userID, goalID uuid.UUID, submissions []QuizSubmission) (string, error)
	PresignUpload(ctx context.Context, userID, verificationID uuid.UUID, fileExt, contentType string) (*PresignResult, error)
	ConfirmUpload(ctx context.Context, userID, verificationID uuid.UUID, s3Key string, meta map[string]any) error
	PhotoViewURL(ctx context.Context, userID, verificationID uuid.UUID) (string, error)
}

type verificationService struct {
	log           *logger.Logger
	db            *gorm.DB
	goals         repos.GoalRepo
	questions     repos.QuizQuestionRepo
	answerInputs  repos.QuizAnswerInputRepo
	verifications repos.VerificationRepo
	photos        repos.VerificationPhotoRepo
	storage       s3x.Service
	scheduler     tasks.Scheduler
}

func NewVerificationService(
	baseLog *logger.Logger,
	db *gorm.DB,
	goals repos.GoalRepo,
	questions repos.QuizQuestionRepo,
	answerInputs repos.QuizAnswerInputRepo,
	verifications repos.VerificationRepo,
	photos repos.VerificationPhotoRepo,
	storage s3x.Service,
	scheduler tasks.Scheduler,
) VerificationService {
	return &verificationService{
		log:           baseLog.With("service", "VerificationService"),
		db:            db,
		goals:         goals,
		questions:     questions,
		answerInputs:  answerInputs,
		verifications: verifications,
		photos:        photos,
		storage:       storage,
		scheduler:     scheduler,
	}
}

func (s *verificationService) VerificationType(ctx context.Context, userID, goalID uuid.UUID) (*VerificationTypeResult, error) {
	goal, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	out := &VerificationTypeResult{VerificationType: goal.GoalType.VerificationType}
	if goal.GoalType.VerificationType == types.VerificationTypeQuiz {
		questions, err := s.questions.GetByGoalID(ctx, nil, goalID)
		if err != nil {
			return nil, fmt.Errorf("load quiz questions: %w", err)
		}
		out.Questions = questionViews(questions)
	}
	return out, nil
}

// CreateVerification opens a photo evidence attempt. An existing pending
// attempt is reused so an interrupted upload flow does not pile up rows.
func (s *verificationService) CreateVerification(ctx context.Context, userID, goalID uuid.UUID) (uuid.UUID, error) {
	goal, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return uuid.Nil, err
	}
	if goal.GoalType.VerificationType != types.VerificationTypePhoto {
		return uuid.Nil, invalidf("verification type must be photo")
	}

	existing, err := s.verifications.GetPendingPhotoForGoal(ctx, nil, goalID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load pending verification: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	verification := &types.Verification{
		GoalID: goalID,
		Type:   types.VerificationTypePhoto,
		Result: types.VerificationResultPending,
	}
	if err := s.verifications.Create(ctx, nil, verification); err != nil {
		return uuid.Nil, fmt.Errorf("create verification: %w", err)
	}
	return verification.ID, nil
}

func (s *verificationService) GetQuiz(ctx context.Context, userID, goalID uuid.UUID) ([]QuizQuestionView, error) {
	if _, err := s.ownedGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	questions, err := s.questions.GetByGoalID(ctx, nil, goalID)
	if err != nil {
		return nil, fmt.Errorf("load quiz questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNotFound
	}
	return questionViews(questions), nil
}

func (s *verificationService) SubmitQuiz(ctx context.Context, userID, goalID uuid.UUID, submissions []QuizSubmission) (string, error) {
	if len(submissions) == 0 {
		return "", invalidf("no answers submitted")
	}

	var result string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The goal row lock serializes concurrent submissions for one goal.
		goal, err := s.goals.GetByIDLocked(ctx, tx, goalID)
		if err != nil {
			return fmt.Errorf("load goal: %w", err)
		}
		if goal == nil {
			return ErrNotFound
		}
		if goal.UserID != userID {
			return ErrForbidden
		}

		questions, err := s.questions.GetByGoalID(ctx, tx, goalID)
		if err != nil {
			return fmt.Errorf("load quiz questions: %w", err)
		}
		if len(questions) == 0 {
			return invalidf("quiz not found for goal")
		}

		answerKey := make(map[uuid.UUID]string, len(questions))
		for _, q := range questions {
			answerKey[q.ID] = q.Answer
		}

		correct := 0
		graded := make([]bool, len(submissions))
		for i, sub := range submissions {
			answer, ok := answerKey[sub.QuizID]
			if !ok {
				return invalidf("invalid quiz_id for this goal")
			}
			isCorrect := answersMatch(sub.UserAnswer, answer)
			graded[i] = isCorrect
			if isCorrect {
				correct++
			}
		}

		score := float64(correct) / float64(len(submissions)) * 100
		passed := score >= passThresholdPercent

		now := time.Now().UTC()
		verificationResult := types.VerificationResultRejected
		if passed {
			result = "pass"
			verificationResult = types.VerificationResultApproved
			goal.Status = types.GoalStatusFinalized
			goal.VerificationStatus = types.VerificationStatusCompleted
			goal.FinalStatus = types.FinalStatusCompleted
		} else {
			result = "fail"
			goal.Status = types.GoalStatusSubmitted
			goal.VerificationStatus = types.VerificationStatusFailed
		}
		// Recorded on fail as well: this is the last-attempt time, not the
		// completion time.
		goal.FinalizedAt = &now

		if err := s.goals.Save(ctx, tx, goal); err != nil {
			return fmt.Errorf("save goal: %w", err)
		}

		verification := &types.Verification{
			GoalID: goalID,
			Type:   types.VerificationTypeQuiz,
			Result: verificationResult,
		}
		if err := s.verifications.Create(ctx, tx, verification); err != nil {
			return fmt.Errorf("create verification: %w", err)
		}

		inputs := make([]*types.QuizAnswerInput, 0, len(submissions))
		for i, sub := range submissions {
			inputs = append(inputs, &types.QuizAnswerInput{
				VerificationID: verification.ID,
				QuestionID:     sub.QuizID,
				UserAnswer:     sub.UserAnswer,
				IsCorrect:      graded[i],
			})
		}
		if err := s.answerInputs.CreateBatch(ctx, tx, inputs); err != nil {
			return fmt.Errorf("record answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("Quiz submission graded", "goal_id", goalID, "result", result)
	return result, nil
}

func (s *verificationService) PresignUpload(ctx context.Context, userID, verificationID uuid.UUID, fileExt, contentType string) (*PresignResult, error) {
	ext := strings.ToLower(strings.TrimSpace(fileExt))
	if !allowedPhotoExts[ext] {
		return nil, invalidf("unsupported file type")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalidf("unsupported content type")
	}

	verification, goal, err := s.ownedPhotoVerification(ctx, userID, verificationID)
	if err != nil {
		return nil, err
	}

	key := s.storage.BuildKey(goal.UserID.String(), verification.ID.String(), ext)
	uploadURL, err := s.storage.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &PresignResult{UploadURL: uploadURL, S3Key: key}, nil
}

func (s *verificationService) ConfirmUpload(ctx context.Context, userID, verificationID uuid.UUID, s3Key string, meta map[string]any) error {
	verification, goal, err := s.ownedPhotoVerification(ctx, userID, verificationID)
	if err != nil {
		return err
	}

	expectedPrefix := fmt.Sprintf("verifications/%s/%s/", goal.UserID, verification.ID)
	if !strings.HasPrefix(s3Key, expectedPrefix) {
		return invalidf("unexpected object key")
	}
	exists, err := s.storage.Exists(ctx, s3Key)
	if err != nil {
		return fmt.Errorf("check object: %w", err)
	}
	if !exists {
		return invalidf("object not found")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photo := &types.VerificationPhoto{
			VerificationID: verification.ID,
			ImageURL:       s.storage.BuildURI(s3Key),
			S3Key:          s3Key,
		}
		if err := photo.SetMetadata(meta); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if err := s.photos.Upsert(ctx, tx, photo); err != nil {
			return fmt.Errorf("save photo: %w", err)
		}

		locked, err := s.goals.GetByIDLocked(ctx, tx, goal.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		locked.Status = types.GoalStatusSubmitted
		return s.goals.Save(ctx, tx, locked)
	})
	if err != nil {
		return err
	}

	// Enqueue only after the commit so the grader sees the photo row.
	if err := s.scheduler.Enqueue(ctx, tasks.TaskEvaluatePhotoVerification, map[string]any{"verification_id": verification.ID.String()}); err != nil {
		s.log.Error("Failed to enqueue photo evaluation", "verification_id", verification.ID, "error", err)
	}
	return nil
}

func (s *verificationService) PhotoViewURL(ctx context.Context, userID, verificationID uuid.UUID) (string, error) {
	verification, _, err := s.ownedVerification(ctx, userID, verificationID)
	if err != nil {
		return "", err
	}

	photo, err := s.photos.GetByVerificationID(ctx, nil, verification.ID)
	if err != nil {
		return "", fmt.Errorf("load photo: %w", err)
	}
	if photo == nil {
		return "", ErrNotFound
	}

	key := photo.S3Key
	if key == "" {
		key = s.storage.ParseURI(photo.ImageURL)
	}
	if key == "" {
		return "", fmt.Errorf("photo %s has no storage key", verification.ID)
	}
	return s.storage.PresignGet(ctx, key)
}

func (s *verificationService) ownedGoal(ctx context.Context, userID, goalID uuid.UUID) (*types.Goal, error) {
	goal, err := s.goals.GetByID(ctx, nil, goalID)
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	if goal == nil || goal.GoalType == nil {
		return nil, ErrNotFound
	}
	if goal.UserID != userID {
		return nil, ErrForbidden
	}
	return goal, nil
}

func (s *verificationService) ownedVerification(ctx context.Context, userID, verificationID uuid.UUID) (*types.Verification, *types.Goal, error) {
	verification, err := s.verifications.GetWithGoal(ctx, nil, verificationID)
	if err != nil {
		return nil, nil, fmt.Errorf("load verification: %w", err)
	}
	if verification == nil || verification.Goal == nil {
		return nil, nil, ErrNotFound
	}
	if verification.Goal.UserID != userID {
		return nil, nil, ErrForbidden
	}
	return verification, verification.Goal, nil
}

func (s *verificationService) ownedPhotoVerification(ctx context.Context, userID, verificationID uuid.UUID) (*types.Verification, *types.Goal, error) {
	verification, goal, err := s.ownedVerification(ctx, userID, verificationID)
	if err != nil {
		return nil, nil, err
	}
	if verification.Type != types.VerificationTypePhoto {
		return nil, nil, invalidf("verification type must be photo")
	}
	return verification, goal, nil
}

func questionViews(questions []*types.QuizQuestion) []QuizQuestionView {
	views := make([]QuizQuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, QuizQuestionView{QuizID: q.ID, Question: q.Question})
	}
	return views
}

func answersMatch(submitted, expected string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(expected))
}
