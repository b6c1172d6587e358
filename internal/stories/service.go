// Package stories implements the ephemeral content core: the expiry policy,
// the per-author feed aggregator and the idempotent view tracker.
package stories

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/models"
	"github.com/nexus-social/backend/internal/social"
	"gorm.io/gorm"
)

// Service owns all story reads and writes. The DB handle and the follow
// graph are injected at construction.
type Service struct {
	db      *gorm.DB
	follows social.FollowGraph
}

func NewService(db *gorm.DB, follows social.FollowGraph) *Service {
	return &Service{db: db, follows: follows}
}

// StoryItem is a story annotated with whether the requesting viewer has
// seen it.
type StoryItem struct {
	models.Story
	HasViewed bool `json:"has_viewed"`
}

// GroupAuthor is the denormalized author header of a feed group.
type GroupAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// StoryGroup is one author's live stories in the feed.
type StoryGroup struct {
	User    GroupAuthor `json:"user"`
	Stories []StoryItem `json:"stories"`
}

// Create validates and stores a new story, denormalizing the author's
// profile fields so the read path never joins against users.
func (s *Service) Create(ctx context.Context, author *models.User, mediaType, mediaURL string) (*models.Story, error) {
	if mediaType != models.MediaTypeImage && mediaType != models.MediaTypeVideo {
		return nil, apperr.Validation("media_type", "media_type must be image or video")
	}
	if mediaURL == "" {
		return nil, apperr.Validation("media_url", "media_url is required")
	}

	now := time.Now().UTC()
	story := &models.Story{
		AuthorID:         author.ID,
		AuthorUsername:   author.Username,
		AuthorProfilePic: author.ProfilePic,
		MediaType:        mediaType,
		MediaURL:         mediaURL,
		CreatedAt:        now,
		ExpiresAt:        ComputeExpiry(now),
	}

	if err := s.db.WithContext(ctx).Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// Get returns a story by id regardless of expiry; callers that care about
// visibility apply IsLive themselves.
func (s *Service) Get(ctx context.Context, storyID string) (*models.Story, error) {
	var story models.Story
	err := s.db.WithContext(ctx).First(&story, "id = ?", storyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("story")
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// Delete removes a story and cascades its view rows. Only the author may
// delete.
func (s *Service) Delete(ctx context.Context, storyID, actorID string) error {
	story, err := s.Get(ctx, storyID)
	if err != nil {
		return err
	}
	if story.AuthorID != actorID {
		return apperr.Forbidden("you can only delete your own stories")
	}

	// View rows first, then the story itself.
	if err := s.db.WithContext(ctx).Where("story_id = ?", storyID).Delete(&models.StoryView{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Story{}, "id = ?", storyID).Error
}

// Feed returns the viewer's story feed: live stories from followed authors
// plus the viewer's own, grouped per author. Groups are ordered by each
// group's newest story, descending. A viewer with no follows and no stories
// gets an empty slice.
func (s *Service) Feed(ctx context.Context, viewerID string) ([]StoryGroup, error) {
	authorIDs, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	// Self-stories are always visible to self.
	authorIDs = append(authorIDs, viewerID)

	now := time.Now().UTC()
	var raw []models.Story
	err = s.db.WithContext(ctx).
		Where("author_id IN ? AND expires_at > ?", authorIDs, now).
		Order("created_at DESC").
		Find(&raw).Error
	if err != nil {
		return nil, err
	}

	viewed, err := s.viewedSet(ctx, viewerID, storyIDs(raw))
	if err != nil {
		return nil, err
	}

	// Group per author. The per-story sort does not guarantee group-level
	// order once grouped, so groups get a second sort pass below.
	type bucket struct {
		group  *StoryGroup
		newest time.Time
	}
	byAuthor := make(map[string]*bucket)
	order := make([]string, 0)
	for _, story := range raw {
		b, ok := byAuthor[story.AuthorID]
		if !ok {
			b = &bucket{
				group: &StoryGroup{
					User: GroupAuthor{
						ID:       story.AuthorID,
						Username: story.AuthorUsername,
						Avatar:   story.AuthorProfilePic,
					},
					Stories: []StoryItem{},
				},
				newest: story.CreatedAt,
			}
			byAuthor[story.AuthorID] = b
			order = append(order, story.AuthorID)
		}
		if story.CreatedAt.After(b.newest) {
			b.newest = story.CreatedAt
		}
		b.group.Stories = append(b.group.Stories, StoryItem{
			Story:     story,
			HasViewed: viewed[story.ID],
		})
	}

	groups := make([]StoryGroup, 0, len(order))
	buckets := make([]*bucket, 0, len(order))
	for _, authorID := range order {
		buckets = append(buckets, byAuthor[authorID])
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].newest.After(buckets[j].newest)
	})
	for _, b := range buckets {
		groups = append(groups, *b.group)
	}
	return groups, nil
}

// UserStories returns one author's live stories, oldest first (viewer
// experience: stories play in posting order), annotated for the viewer.
func (s *Service) UserStories(ctx context.Context, authorID, viewerID string) ([]StoryItem, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", authorID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, apperr.NotFound("user")
	}

	now := time.Now().UTC()
	var raw []models.Story
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND expires_at > ?", authorID, now).
		Order("created_at ASC").
		Find(&raw).Error
	if err != nil {
		return nil, err
	}

	viewed, err := s.viewedSet(ctx, viewerID, storyIDs(raw))
	if err != nil {
		return nil, err
	}

	items := make([]StoryItem, len(raw))
	for i, story := range raw {
		items[i] = StoryItem{Story: story, HasViewed: viewed[story.ID]}
	}
	return items, nil
}

// viewedSet returns which of the given stories the viewer has seen.
func (s *Service) viewedSet(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	viewed := make(map[string]bool)
	if len(ids) == 0 {
		return viewed, nil
	}

	var viewedIDs []string
	err := s.db.WithContext(ctx).
		Model(&models.StoryView{}).
		Where("user_id = ? AND story_id IN ?", viewerID, ids).
		Pluck("story_id", &viewedIDs).Error
	if err != nil {
		return nil, err
	}
	for _, id := range viewedIDs {
		viewed[id] = true
	}
	return viewed, nil
}

func storyIDs(stories []models.Story) []string {
	ids := make([]string, len(stories))
	for i, s := range stories {
		ids[i] = s.ID
	}
	return ids
}
