package gdpr

import (
	"context"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
)

// RecordConsent appends a consent decision to the audit trail. Rows are
// never updated in place.
func (s *Service) RecordConsent(ctx context.Context, userID, consentType string, given bool, ipAddress string) (*models.ConsentLog, error) {
	if consentType == "" {
		return nil, apperr.Validation("consent_type", "consent_type is required")
	}

	entry := &models.ConsentLog{
		UserID:       userID,
		ConsentType:  consentType,
		ConsentGiven: given,
		IPAddress:    ipAddress,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// ConsentHistory returns the user's consent trail, newest first.
func (s *Service) ConsentHistory(ctx context.Context, userID string) ([]models.ConsentLog, error) {
	var logs []models.ConsentLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Find(&logs).Error
	return logs, err
}
