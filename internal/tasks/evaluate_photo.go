package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/platform/openai"
	"github.com/dreamstudio/backend/internal/platform/s3x"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/types"
)

const evaluatePhotoSystemPrompt = "You judge whether a photo is genuine evidence " +
	"that the described goal was completed. Answer with the requested JSON object only."

var photoVerdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_true":    map[string]any{"type": "boolean"},
		"confidence": map[string]any{"type": "number"},
		"reason":     map[string]any{"type": "string"},
	},
	"required":             []string{"is_true", "confidence", "reason"},
	"additionalProperties": false,
}

// EvaluatePhotoHandler grades a confirmed photo upload against its goal's
// verification prompt and finalizes or re-opens the goal accordingly.
type EvaluatePhotoHandler struct {
	log           *logger.Logger
	db            *gorm.DB
	goals         repos.GoalRepo
	verifications repos.VerificationRepo
	photos        repos.VerificationPhotoRepo
	ai            openai.Client
	storage       s3x.Service
}

func NewEvaluatePhotoHandler(baseLog *logger.Logger, db *gorm.DB, goals repos.GoalRepo, verifications repos.VerificationRepo, photos repos.VerificationPhotoRepo, ai openai.Client, storage s3x.Service) *EvaluatePhotoHandler {
	return &EvaluatePhotoHandler{
		log:           baseLog.With("task", TaskEvaluatePhotoVerification),
		db:            db,
		goals:         goals,
		verifications: verifications,
		photos:        photos,
		ai:            ai,
		storage:       storage,
	}
}

func (h *EvaluatePhotoHandler) Name() string           { return TaskEvaluatePhotoVerification }
func (h *EvaluatePhotoHandler) MaxAttempts() int       { return 3 }
func (h *EvaluatePhotoHandler) Backoff() time.Duration { return 20 * time.Second }

func (h *EvaluatePhotoHandler) Run(ctx context.Context, payload map[string]any) error {
	verificationID, err := payloadUUID(payload, "verification_id")
	if err != nil {
		return Fatal(err)
	}

	verification, err := h.verifications.GetWithGoal(ctx, nil, verificationID)
	if err != nil {
		return fmt.Errorf("load verification: %w", err)
	}
	if verification == nil {
		return Fatal(fmt.Errorf("verification %s not found", verificationID))
	}
	if verification.Type != types.VerificationTypePhoto {
		return Fatal(fmt.Errorf("verification %s is not photo-typed", verificationID))
	}
	if verification.Result != types.VerificationResultPending {
		h.log.Info("Verification already graded, skipping", "verification_id", verificationID, "result", verification.Result)
		return nil
	}
	if verification.Photo == nil {
		return Fatal(fmt.Errorf("verification %s has no confirmed photo", verificationID))
	}
	if verification.Goal == nil || verification.Goal.GoalType == nil {
		return Fatal(fmt.Errorf("verification %s has no goal", verificationID))
	}

	key := verification.Photo.S3Key
	if key == "" {
		key = h.storage.ParseURI(verification.Photo.ImageURL)
	}
	if key == "" {
		return Fatal(fmt.Errorf("verification %s photo has no storage key", verificationID))
	}

	imageURL, err := h.storage.PresignGet(ctx, key)
	if err != nil {
		return fmt.Errorf("presign photo: %w", err)
	}

	goal := verification.Goal
	prompt := goal.GoalType.RenderPrompt(goal.UserInput)
	out, err := h.ai.GenerateJSONWithImages(ctx, evaluatePhotoSystemPrompt, prompt,
		[]openai.ImageInput{{ImageURL: imageURL, Detail: "auto"}},
		"photo_verdict", photoVerdictSchema)
	if err != nil {
		return fmt.Errorf("grade photo: %w", err)
	}

	isTrue, ok := out["is_true"].(bool)
	if !ok {
		return fmt.Errorf("completion response missing is_true")
	}
	confidence, _ := out["confidence"].(float64)
	reason, _ := out["reason"].(string)

	now := time.Now().UTC()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := h.goals.GetByIDLocked(ctx, tx, goal.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return fmt.Errorf("goal %s not found", goal.ID)
		}

		result := types.VerificationResultRejected
		if isTrue {
			result = types.VerificationResultApproved
			locked.Status = types.GoalStatusFinalized
			locked.VerificationStatus = types.VerificationStatusCompleted
			locked.FinalStatus = types.FinalStatusCompleted
			locked.FinalizedAt = &now
		} else {
			locked.Status = types.GoalStatusSubmitted
			locked.VerificationStatus = types.VerificationStatusFailed
		}

		if err := h.verifications.SetResult(ctx, tx, verificationID, result); err != nil {
			return err
		}
		if err := h.goals.Save(ctx, tx, locked); err != nil {
			return err
		}
		return h.photos.MergeMetadata(ctx, tx, verificationID, map[string]interface{}{
			"ai_verdict": map[string]interface{}{
				"is_true":    isTrue,
				"confidence": confidence,
				"reason":     reason,
				"model":      h.ai.Model(),
				"graded_at":  now.Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		return fmt.Errorf("persist photo verdict: %w", err)
	}

	h.log.Info("Photo verification graded", "verification_id", verificationID, "goal_id", goal.ID, "approved", isTrue)
	return nil
}
