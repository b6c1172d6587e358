package gdpr

import (
	"context"
	"errors"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// EraseAccount deletes every collection the user owns, anonymizes their
// consent logs and removes the user row last. Dependent data goes first so
// a crash mid-sequence never leaves owned rows pointing at a deleted user;
// no cross-collection transaction wraps the sequence (a partial erasure is
// accepted, logged, and surfaces as a failed request).
func (s *Service) EraseAccount(ctx context.Context, userID string) error {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("user")
	}
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)

	if err := db.Where("author_id = ?", userID).Delete(&models.Post{}).Error; err != nil {
		return err
	}
	if err := db.Where("author_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := s.eraseFollowEdges(ctx, userID); err != nil {
		return err
	}
	if err := db.Where("sender_id = ? OR recipient_id = ?", userID, userID).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	if err := s.eraseStories(ctx, userID); err != nil {
		return err
	}
	if err := db.Where("user_id = ?", userID).Delete(&models.PrivacySetting{}).Error; err != nil {
		return err
	}

	// Consent logs are anonymized, not deleted: the audit trail survives
	// erasure with the personal identifier replaced by a sentinel.
	err = db.Model(&models.ConsentLog{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_id":    models.AnonymizedUserID,
			"anonymized": true,
		}).Error
	if err != nil {
		return err
	}

	if err := db.Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		return err
	}

	logger.Log.Info("account erased", logger.WithUserID(userID))
	return nil
}

// eraseFollowEdges removes both directions of the user's follow edges and
// decrements the counterpart counters, but only for edges that actually
// existed so counters never go negative.
func (s *Service) eraseFollowEdges(ctx context.Context, userID string) error {
	db := s.db.WithContext(ctx)

	var outgoing []models.Follow
	if err := db.Where("follower_id = ?", userID).Find(&outgoing).Error; err != nil {
		return err
	}
	for _, edge := range outgoing {
		result := db.Delete(&models.Follow{}, "id = ?", edge.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			if err := db.Model(&models.User{}).
				Where("id = ? AND followers_count > 0", edge.FollowedID).
				UpdateColumn("followers_count", gorm.Expr("followers_count - 1")).Error; err != nil {
				return err
			}
		}
	}

	var incoming []models.Follow
	if err := db.Where("followed_id = ?", userID).Find(&incoming).Error; err != nil {
		return err
	}
	for _, edge := range incoming {
		result := db.Delete(&models.Follow{}, "id = ?", edge.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			if err := db.Model(&models.User{}).
				Where("id = ? AND following_count > 0", edge.FollowerID).
				UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// eraseStories removes the user's stories with their view rows, plus the
// view rows the user left on other authors' stories.
func (s *Service) eraseStories(ctx context.Context, userID string) error {
	db := s.db.WithContext(ctx)

	if err := db.Where("user_id = ?", userID).Delete(&models.StoryView{}).Error; err != nil {
		return err
	}

	var storyIDs []string
	err := db.Model(&models.Story{}).
		Where("author_id = ?", userID).
		Pluck("id", &storyIDs).Error
	if err != nil {
		return err
	}
	if len(storyIDs) > 0 {
		if err := db.Where("story_id IN ?", storyIDs).Delete(&models.StoryView{}).Error; err != nil {
			return err
		}
	}
	return db.Where("author_id = ?", userID).Delete(&models.Story{}).Error
}
