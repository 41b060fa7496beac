package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamstudio/backend/internal/platform/logger"
	"github.com/dreamstudio/backend/internal/repos"
)

const (
	cleanupBatchSize = 200
	cleanupMaxAge    = 24 * time.Hour
)

// CleanupVerificationsHandler is the hourly sweep of photo verifications
// whose upload was never confirmed. Verifications with an attached photo are
// evidence awaiting grading and are never touched.
type CleanupVerificationsHandler struct {
	log           *logger.Logger
	verifications repos.VerificationRepo
}

func NewCleanupVerificationsHandler(baseLog *logger.Logger, verifications repos.VerificationRepo) *CleanupVerificationsHandler {
	return &CleanupVerificationsHandler{
		log:           baseLog.With("task", TaskCleanupAbandonedVerifications),
		verifications: verifications,
	}
}

func (h *CleanupVerificationsHandler) Name() string           { return TaskCleanupAbandonedVerifications }
func (h *CleanupVerificationsHandler) MaxAttempts() int       { return 4 }
func (h *CleanupVerificationsHandler) Backoff() time.Duration { return 30 * time.Second }

func (h *CleanupVerificationsHandler) Run(ctx context.Context, _ map[string]any) error {
	cutoff := time.Now().UTC().Add(-cleanupMaxAge)
	deleted, err := h.verifications.DeleteAbandonedPhotos(ctx, nil, cutoff, cleanupBatchSize)
	if err != nil {
		return fmt.Errorf("delete abandoned verifications: %w", err)
	}
	if deleted > 0 {
		h.log.Info("Abandoned verifications removed", "count", deleted)
	}
	return nil
}
