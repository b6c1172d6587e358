package stories

import (
	"context"
	"errors"
	"time"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// Viewer is one entry of a story's viewer roster.
type Viewer struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	ProfilePic string    `json:"profile_pic,omitempty"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// RecordView idempotently records that viewerID saw storyID. A missing
// story is a silent no-op: the tracker's only responsibility is recording,
// callers pre-check existence and surface NotFound themselves. The view-row
// insert and the counter increment are two separate writes; a crash between
// them can leave views_count short of the row count (accepted, see the
// store's consistency notes).
func (s *Service) RecordView(ctx context.Context, storyID, viewerID string) error {
	var story models.Story
	err := s.db.WithContext(ctx).First(&story, "id = ?", storyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var existing models.StoryView
	err = s.db.WithContext(ctx).
		Where("story_id = ? AND user_id = ?", storyID, viewerID).
		First(&existing).Error
	if err == nil {
		// Already viewed: calling twice has the same effect as calling once.
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	view := models.StoryView{
		StoryID:  storyID,
		UserID:   viewerID,
		ViewedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&view).Error; err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&models.Story{}).
		Where("id = ?", storyID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}

// ListViewers returns the roster of users who viewed a story, joined with
// the minimal viewer profile. Only the story's author may see it.
func (s *Service) ListViewers(ctx context.Context, storyID, actorID string) ([]Viewer, error) {
	story, err := s.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.AuthorID != actorID {
		return nil, apperr.Forbidden("only the story author can view the viewer list")
	}

	var views []models.StoryView
	err = s.db.WithContext(ctx).
		Where("story_id = ?", storyID).
		Preload("Viewer").
		Order("viewed_at DESC").
		Find(&views).Error
	if err != nil {
		return nil, err
	}

	viewers := make([]Viewer, len(views))
	for i, v := range views {
		viewers[i] = Viewer{
			UserID:     v.UserID,
			Username:   v.Viewer.Username,
			ProfilePic: v.Viewer.ProfilePic,
			ViewedAt:   v.ViewedAt,
		}
	}
	return viewers, nil
}
