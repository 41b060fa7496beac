package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/platform/openai"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/types"
)

const generateQuizSystemPrompt = "You write short factual quizzes. " +
	"Answer with the requested JSON object only."

var quizQuestionsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"answers": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"questions", "answers"},
	"additionalProperties": false,
}

// GenerateQuizHandler produces the quiz question set for a quiz-modality
// goal. At-least-once delivery is narrowed to exactly-once business effect by
// the quiz_question_status compare-and-swap claim.
type GenerateQuizHandler struct {
	log       *logger.Logger
	db        *gorm.DB
	goals     repos.GoalRepo
	questions repos.QuizQuestionRepo
	ai        openai.Client
}

func NewGenerateQuizHandler(baseLog *logger.Logger, db *gorm.DB, goals repos.GoalRepo, questions repos.QuizQuestionRepo, ai openai.Client) *GenerateQuizHandler {
	return &GenerateQuizHandler{
		log:       baseLog.With("task", TaskGenerateQuiz),
		db:        db,
		goals:     goals,
		questions: questions,
		ai:        ai,
	}
}

func (h *GenerateQuizHandler) Name() string           { return TaskGenerateQuiz }
func (h *GenerateQuizHandler) MaxAttempts() int       { return 4 }
func (h *GenerateQuizHandler) Backoff() time.Duration { return 30 * time.Second }

func (h *GenerateQuizHandler) Run(ctx context.Context, payload map[string]any) error {
	goalID, err := payloadUUID(payload, "goal_id")
	if err != nil {
		return Fatal(err)
	}

	claimed, err := h.goals.ClaimQuizGeneration(ctx, nil, goalID)
	if err != nil {
		return fmt.Errorf("claim quiz generation: %w", err)
	}
	if !claimed {
		h.log.Info("Quiz generation already claimed, skipping", "goal_id", goalID)
		return nil
	}

	if err := h.generate(ctx, goalID); err != nil {
		// Release the claim so a later delivery can pick the goal back up.
		if markErr := h.goals.SetQuizGenerationStatus(ctx, nil, goalID, types.QuizQuestionStatusFailed); markErr != nil {
			h.log.Error("Failed to release quiz generation claim", "goal_id", goalID, "error", markErr)
		}
		return err
	}
	return nil
}

func (h *GenerateQuizHandler) generate(ctx context.Context, goalID uuid.UUID) error {
	goal, err := h.goals.GetByID(ctx, nil, goalID)
	if err != nil {
		return fmt.Errorf("load goal: %w", err)
	}
	if goal == nil {
		return Fatal(fmt.Errorf("goal %s not found", goalID))
	}
	if goal.GoalType == nil {
		return Fatal(fmt.Errorf("goal %s has no goal type", goalID))
	}
	if goal.GoalType.VerificationType != types.VerificationTypeQuiz {
		return Fatal(fmt.Errorf("goal %s is not quiz-modality", goalID))
	}

	exists, err := h.questions.ExistsForGoal(ctx, nil, goalID)
	if err != nil {
		return fmt.Errorf("check existing questions: %w", err)
	}
	if exists {
		// A prior delivery crashed between persisting and acknowledging.
		return h.goals.SetQuizGenerationStatus(ctx, nil, goalID, types.QuizQuestionStatusCreated)
	}

	prompt := goal.GoalType.RenderPrompt(goal.UserInput)
	out, err := h.ai.GenerateJSON(ctx, generateQuizSystemPrompt, prompt, "quiz_questions", quizQuestionsSchema)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	questions, err := stringSlice(out, "questions")
	if err != nil {
		return err
	}
	answers, err := stringSlice(out, "answers")
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("completion returned no questions")
	}
	if len(questions) != len(answers) {
		return fmt.Errorf("completion returned %d questions but %d answers", len(questions), len(answers))
	}

	rows := make([]*types.QuizQuestion, 0, len(questions))
	for i := range questions {
		q := strings.TrimSpace(questions[i])
		a := strings.TrimSpace(answers[i])
		if q == "" || a == "" {
			return fmt.Errorf("completion returned an empty question or answer at index %d", i)
		}
		rows = append(rows, &types.QuizQuestion{
			GoalID:   goalID,
			Question: q,
			Answer:   a,
		})
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := h.questions.CreateBatch(ctx, tx, rows); err != nil {
			return err
		}
		return h.goals.SetQuizGenerationStatus(ctx, tx, goalID, types.QuizQuestionStatusCreated)
	})
	if err != nil {
		return fmt.Errorf("persist quiz: %w", err)
	}

	h.log.Info("Quiz generated", "goal_id", goalID, "questions", len(rows))
	return nil
}

func stringSlice(out map[string]any, key string) ([]string, error) {
	raw, ok := out[key].([]any)
	if !ok {
		return nil, fmt.Errorf("completion response missing %q array", key)
	}
	vals := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("completion response %q contains a non-string entry", key)
		}
		vals = append(vals, s)
	}
	return vals, nil
}
