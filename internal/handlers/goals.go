package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dreamstudio/backend/internal/middleware"
	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/services"
	"github.com/dreamstudio/backend/internal/types"
)

type GoalHandler struct {
	log     *logger.Logger
	goalSvc services.GoalService
}

func NewGoalHandler(baseLog *logger.Logger, goalSvc services.GoalService) *GoalHandler {
	return &GoalHandler{
		log:     baseLog.With("handler", "GoalHandler"),
		goalSvc: goalSvc,
	}
}

type currentGoalResponse struct {
	types.Goal
	VerificationID        *uuid.UUID `json:"verification_id,omitempty"`
	VerificationType      *string    `json:"verification_type,omitempty"`
	VerificationResult    *string    `json:"verification_result,omitempty"`
	VerificationUpdatedAt *time.Time `json:"verification_updated_at,omitempty"`
}

// POST /api/v1/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var in services.CreateGoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	goal, err := h.goalSvc.CreateGoal(c.Request.Context(), userID, in)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// GET /api/v1/goals/types
func (h *GoalHandler) GetGoalTypes(c *gin.Context) {
	goalTypes, err := h.goalSvc.ListGoalTypes(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, goalTypes)
}

// GET /api/v1/goals/current
func (h *GoalHandler) GetCurrentGoals(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	rows, err := h.goalSvc.CurrentGoals(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	out := make([]currentGoalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, currentGoalResponse{
			Goal:                  row.Goal,
			VerificationID:        row.VerificationID,
			VerificationType:      row.VerificationType,
			VerificationResult:    row.VerificationResult,
			VerificationUpdatedAt: row.VerificationUpdatedAt,
		})
	}
	RespondOK(c, out)
}
