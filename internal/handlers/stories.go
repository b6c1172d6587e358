package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexus-social/backend/internal/stories"
)

// CreateStory handles story creation
// POST /api/v1/stories
func (h *Handlers) CreateStory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		MediaType string `json:"media_type" binding:"required"`
		MediaURL  string `json:"media_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	story, err := h.stories.Create(c.Request.Context(), user, req.MediaType, req.MediaURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"story":      story,
		"expires_at": story.ExpiresAt.Format(time.RFC3339),
	})
}

// GetStoriesFeed returns live stories from followed users plus the
// caller's own, grouped per author
// GET /api/v1/stories/feed
func (h *Handlers) GetStoriesFeed(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	groups, err := h.stories.Feed(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stories": groups,
		"count":   len(groups),
	})
}

// GetUserStories returns one author's live stories in posting order
// GET /api/v1/stories/user/:id
func (h *Handlers) GetUserStories(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.stories.UserStories(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stories": items,
		"count":   len(items),
	})
}

// ViewStory marks a story as viewed by the current user
// POST /api/v1/stories/:id/view
func (h *Handlers) ViewStory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	storyID := c.Param("id")

	// The tracker treats a missing story as a no-op, so existence and
	// expiry are checked here where they map to HTTP statuses.
	story, err := h.stories.Get(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !stories.IsLive(story.ExpiresAt, time.Now().UTC()) {
		c.JSON(http.StatusGone, gin.H{
			"error":   "expired",
			"message": "Story has expired",
		})
		return
	}

	if err := h.stories.RecordView(c.Request.Context(), storyID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.StoryViewsRecorded.Inc()
	}

	// Re-read for the post-increment count.
	story, err = h.stories.Get(c.Request.Context(), storyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"viewed":      true,
		"views_count": story.ViewsCount,
	})
}

// GetStoryViewers returns the viewer roster, story author only
// GET /api/v1/stories/:id/viewers
func (h *Handlers) GetStoryViewers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	viewers, err := h.stories.ListViewers(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"viewers":     viewers,
		"views_count": len(viewers),
	})
}

// DeleteStory deletes a story, author only
// DELETE /api/v1/stories/:id
func (h *Handlers) DeleteStory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.stories.Delete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Story deleted successfully",
	})
}
