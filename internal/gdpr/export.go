package gdpr

import (
	"context"
	"errors"
	"time"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// DataExport is the Art. 20 portability bundle: everything the platform
// holds about one user, as plain JSON.
type DataExport struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	Profile         models.User             `json:"profile"`
	Posts           []models.Post           `json:"posts"`
	Comments        []models.Comment        `json:"comments"`
	Stories         []models.Story          `json:"stories"`
	ConsentHistory  []models.ConsentLog     `json:"consent_history"`
	PrivacySettings *models.PrivacySetting  `json:"privacy_settings"`
	DeletionRequest *models.DeletionRequest `json:"deletion_request,omitempty"`
}

// ExportData assembles the export bundle for a user.
func (s *Service) ExportData(ctx context.Context, userID string) (*DataExport, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}

	export := &DataExport{
		GeneratedAt: time.Now().UTC(),
		Profile:     user,
	}

	if err := s.db.WithContext(ctx).Where("author_id = ?", userID).Order("created_at DESC").Find(&export.Posts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("author_id = ?", userID).Order("created_at DESC").Find(&export.Comments).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("author_id = ?", userID).Order("created_at DESC").Find(&export.Stories).Error; err != nil {
		return nil, err
	}

	export.ConsentHistory, err = s.ConsentHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	export.PrivacySettings, err = s.GetPrivacySettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if request, err := s.GetDeletionRequest(ctx, userID); err == nil {
		export.DeletionRequest = request
	}

	return export, nil
}
