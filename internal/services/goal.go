package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
	"github.com/dreamstudio/backend/internal/tasks"
	"github.com/dreamstudio/backend/internal/types"
)

type CreateGoalInput struct {
	GoalTypeID   uuid.UUID `json:"goal_type_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	UserInput    string    `json:"user_input"`
	BountyAmount int       `json:"bounty_amount"`
	Deadline     time.Time `json:"deadline"`
}

type GoalService interface {
	CreateGoal(ctx context.Context, userID uuid.UUID, in CreateGoalInput) (*types.Goal, error)
	ListGoalTypes(ctx context.Context) ([]*types.GoalType, error)
	CurrentGoals(ctx context.Context, userID uuid.UUID) ([]*repos.GoalCurrent, error)
}

type goalService struct {
	log       *logger.Logger
	goals     repos.GoalRepo
	goalTypes repos.GoalTypeRepo
	scheduler tasks.Scheduler
}

func NewGoalService(baseLog *logger.Logger, goals repos.GoalRepo, goalTypes repos.GoalTypeRepo, scheduler tasks.Scheduler) GoalService {
	return &goalService{
		log:       baseLog.With("service", "GoalService"),
		goals:     goals,
		goalTypes: goalTypes,
		scheduler: scheduler,
	}
}

func (s *goalService) CreateGoal(ctx context.Context, userID uuid.UUID, in CreateGoalInput) (*types.Goal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalidf("title is required")
	}
	if in.BountyAmount <= 0 {
		return nil, invalidf("bounty_amount must be positive")
	}
	if !in.Deadline.After(time.Now()) {
		return nil, invalidf("deadline must be in the future")
	}

	goalType, err := s.goalTypes.GetByID(ctx, nil, in.GoalTypeID)
	if err != nil {
		return nil, fmt.Errorf("load goal type: %w", err)
	}
	if goalType == nil {
		return nil, invalidf("invalid goal type")
	}

	goal := &types.Goal{
		UserID:       userID,
		GoalTypeID:   goalType.ID,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		UserInput:    in.UserInput,
		BountyAmount: in.BountyAmount,
		Deadline:     in.Deadline,
	}
	if err := s.goals.Create(ctx, nil, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	goal.GoalType = goalType

	// Enqueue only after the row is committed so the worker can see it.
	if goalType.VerificationType == types.VerificationTypeQuiz {
		if err := s.scheduler.Enqueue(ctx, tasks.TaskGenerateQuiz, map[string]any{"goal_id": goal.ID.String()}); err != nil {
			s.log.Error("Failed to enqueue quiz generation", "goal_id", goal.ID, "error", err)
		}
	}

	s.log.Info("Goal created", "goal_id", goal.ID, "user_id", userID, "goal_type", goalType.Name)
	return goal, nil
}

func (s *goalService) ListGoalTypes(ctx context.Context) ([]*types.GoalType, error) {
	goalTypes, err := s.goalTypes.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list goal types: %w", err)
	}
	if len(goalTypes) == 0 {
		return nil, ErrNotFound
	}
	return goalTypes, nil
}

func (s *goalService) CurrentGoals(ctx context.Context, userID uuid.UUID) ([]*repos.GoalCurrent, error) {
	rows, err := s.goals.CurrentForUser(ctx, nil, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list current goals: %w", err)
	}
	return rows, nil
}
