package gdpr

import (
	"context"
	"errors"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// PrivacySettingsUpdate carries the mutable settings fields. Nil pointers
// leave the field untouched; RetentionDays may also be explicitly cleared.
type PrivacySettingsUpdate struct {
	DataRetentionDays  *int  `json:"data_retention_days,omitempty"`
	ClearRetentionDays bool  `json:"clear_retention_days,omitempty"`
	ProfileVisible     *bool `json:"profile_visible,omitempty"`
	AllowMessages      *bool `json:"allow_messages,omitempty"`
}

// GetPrivacySettings returns the user's settings, or the defaults when the
// user never saved any.
func (s *Service) GetPrivacySettings(ctx context.Context, userID string) (*models.PrivacySetting, error) {
	var setting models.PrivacySetting
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PrivacySetting{
			UserID:         userID,
			ProfileVisible: true,
			AllowMessages:  true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// UpdatePrivacySettings upserts the user's settings row.
func (s *Service) UpdatePrivacySettings(ctx context.Context, userID string, update PrivacySettingsUpdate) (*models.PrivacySetting, error) {
	if update.DataRetentionDays != nil {
		days := *update.DataRetentionDays
		if days < 1 || days > 3650 {
			return nil, apperr.Validation("data_retention_days", "data_retention_days must be between 1 and 3650")
		}
	}

	var setting models.PrivacySetting
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.PrivacySetting{
			UserID:         userID,
			ProfileVisible: true,
			AllowMessages:  true,
		}
		if err := s.db.WithContext(ctx).Create(&setting).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	if update.ClearRetentionDays {
		changes["data_retention_days"] = nil
	} else if update.DataRetentionDays != nil {
		changes["data_retention_days"] = *update.DataRetentionDays
	}
	if update.ProfileVisible != nil {
		changes["profile_visible"] = *update.ProfileVisible
	}
	if update.AllowMessages != nil {
		changes["allow_messages"] = *update.AllowMessages
	}

	if len(changes) > 0 {
		err = s.db.WithContext(ctx).
			Model(&models.PrivacySetting{}).
			Where("id = ?", setting.ID).
			Updates(changes).Error
		if err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Where("user_id = ?", userID).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// RetentionPolicies returns every settings row that opts into the
// stale-data sweep (a non-null data_retention_days).
func (s *Service) RetentionPolicies(ctx context.Context) ([]models.PrivacySetting, error) {
	var settings []models.PrivacySetting
	err := s.db.WithContext(ctx).
		Where("data_retention_days IS NOT NULL").
		Find(&settings).Error
	return settings, err
}
