package gdpr

import (
	"context"
	"errors"
	"time"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// RequestDeletion opens an account-erasure request with a 30-day grace
// window. At most one active (pending or processing) request may exist per
// user; a second submission is rejected with Conflict. A new request is
// accepted once the prior one has reached a terminal state.
func (s *Service) RequestDeletion(ctx context.Context, userID, reason string) (*models.DeletionRequest, error) {
	var active models.DeletionRequest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.DeletionStatusPending, models.DeletionStatusProcessing}).
		First(&active).Error
	if err == nil {
		return nil, apperr.Conflict("a deletion request is already in progress for this account")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	request := &models.DeletionRequest{
		UserID:              userID,
		Reason:              reason,
		Status:              models.DeletionStatusPending,
		RequestedAt:         now,
		ScheduledDeletionAt: now.AddDate(0, 0, GracePeriodDays),
	}
	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("deletion_scheduled", true).Error
	if err != nil {
		return nil, err
	}
	return request, nil
}

// CancelDeletion withdraws a pending request and clears the user's deletion
// flag. A request the scheduler has already claimed cannot be cancelled.
func (s *Service) CancelDeletion(ctx context.Context, userID string) error {
	var request models.DeletionRequest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.DeletionStatusPending, models.DeletionStatusProcessing}).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("deletion request")
	}
	if err != nil {
		return err
	}
	if request.Status == models.DeletionStatusProcessing {
		return apperr.Conflict("deletion is already being processed and can no longer be cancelled")
	}

	if err := s.db.WithContext(ctx).Delete(&models.DeletionRequest{}, "id = ?", request.ID).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("deletion_scheduled", false).Error
}

// GetDeletionRequest returns the user's most recent request.
func (s *Service) GetDeletionRequest(ctx context.Context, userID string) (*models.DeletionRequest, error) {
	var request models.DeletionRequest
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("requested_at DESC").
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("deletion request")
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// DueRequests returns pending requests whose grace window has elapsed.
// Only the retention scheduler calls this; no other actor claims requests.
func (s *Service) DueRequests(ctx context.Context, now time.Time) ([]models.DeletionRequest, error) {
	var requests []models.DeletionRequest
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_deletion_at <= ?", models.DeletionStatusPending, now).
		Order("scheduled_deletion_at ASC").
		Find(&requests).Error
	return requests, err
}

// Claim transitions a pending request to processing, signalling exclusive
// ownership of its execution.
func (s *Service) Claim(ctx context.Context, requestID string) error {
	return s.db.WithContext(ctx).
		Model(&models.DeletionRequest{}).
		Where("id = ?", requestID).
		Update("status", models.DeletionStatusProcessing).Error
}

// MarkCompleted finishes a claimed request.
func (s *Service) MarkCompleted(ctx context.Context, requestID string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&models.DeletionRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]interface{}{
			"status":       models.DeletionStatusCompleted,
			"completed_at": &now,
		}).Error
}

// MarkFailed records the error on a claimed request. Failed requests stay
// failed for manual follow-up; there is no automatic retry.
func (s *Service) MarkFailed(ctx context.Context, requestID string, cause error) error {
	return s.db.WithContext(ctx).
		Model(&models.DeletionRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]interface{}{
			"status": models.DeletionStatusFailed,
			"error":  cause.Error(),
		}).Error
}
