package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dreamstudio/backend/internal/middleware"
	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/services"
)

type VerificationHandler struct {
	log       *logger.Logger
	verifySvc services.VerificationService
}

func NewVerificationHandler(baseLog *logger.Logger, verifySvc services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		log:       baseLog.With("handler", "VerificationHandler"),
		verifySvc: verifySvc,
	}
}

type submitQuizRequest struct {
	GoalID         uuid.UUID                 `json:"goal_id" binding:"required"`
	UserSubmission []services.QuizSubmission `json:"user_submission"`
}

type presignPhotoRequest struct {
	VerificationID uuid.UUID `json:"verification_id" binding:"required"`
	FileExt        string    `json:"file_ext" binding:"required"`
	ContentType    string    `json:"content_type" binding:"required"`
}

type confirmPhotoRequest struct {
	VerificationID uuid.UUID      `json:"verification_id" binding:"required"`
	S3Key          string         `json:"s3_key" binding:"required"`
	Meta           map[string]any `json:"meta"`
}

// GET /api/v1/verifications/type/:goal_id
func (h *VerificationHandler) GetVerificationType(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	goalID, err := uuid.Parse(c.Param("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.verifySvc.VerificationType(c.Request.Context(), userID, goalID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/v1/verifications/:goal_id
func (h *VerificationHandler) CreateVerification(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	goalID, err := uuid.Parse(c.Param("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	verificationID, err := h.verifySvc.CreateVerification(c.Request.Context(), userID, goalID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"verification_id": verificationID})
}

// GET /api/v1/verifications/quiz/:goal_id
func (h *VerificationHandler) GetQuiz(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	goalID, err := uuid.Parse(c.Param("goal_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	questions, err := h.verifySvc.GetQuiz(c.Request.Context(), userID, goalID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

// POST /api/v1/verifications/quiz/submit
func (h *VerificationHandler) SubmitQuiz(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.verifySvc.SubmitQuiz(c.Request.Context(), userID, req.GoalID, req.UserSubmission)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}

// POST /api/v1/verifications/photos/presign
func (h *VerificationHandler) PresignPhotoUpload(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req presignPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.verifySvc.PresignUpload(c.Request.Context(), userID, req.VerificationID, req.FileExt, req.ContentType)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/v1/verifications/photos/confirm
func (h *VerificationHandler) ConfirmPhotoUpload(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req confirmPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.verifySvc.ConfirmUpload(c.Request.Context(), userID, req.VerificationID, req.S3Key, req.Meta); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

// GET /api/v1/verifications/photos/:verification_id
func (h *VerificationHandler) GetPhotoViewURL(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	verificationID, err := uuid.Parse(c.Param("verification_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	viewURL, err := h.verifySvc.PhotoViewURL(c.Request.Context(), userID, verificationID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"verification_id": verificationID, "view_url": viewURL})
}
