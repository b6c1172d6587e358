package models

import (
	"time"

	"gorm.io/gorm"
)

// Media types accepted for stories.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Story is an ephemeral media post that expires 24 hours after creation.
// Author profile fields are denormalized at write time so the read path
// never joins against users (an erased author leaves no broken entries).
type Story struct {
	ID               string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AuthorID         string `gorm:"not null;index:idx_stories_author_expires" json:"author_id"`
	AuthorUsername   string `gorm:"not null" json:"author_username"`
	AuthorProfilePic string `gorm:"type:text" json:"author_profile_pic"`

	MediaType string `gorm:"not null" json:"media_type"`
	MediaURL  string `gorm:"type:text;not null" json:"media_url"`

	ViewsCount int `gorm:"default:0" json:"views_count"`

	CreatedAt time.Time `json:"created_at"`
	// created_at + 24h, fixed at creation and never mutated.
	ExpiresAt time.Time `gorm:"not null;index:idx_stories_author_expires;index" json:"expires_at"`
}

// StoryView records that a user saw a story. At most one row per
// (story_id, user_id); recording is idempotent.
type StoryView struct {
	ID       string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	StoryID  string    `gorm:"not null;index:idx_story_views_pair,unique" json:"story_id"`
	UserID   string    `gorm:"not null;index:idx_story_views_pair,unique;index" json:"user_id"`
	Viewer   User      `gorm:"foreignKey:UserID" json:"viewer,omitempty"`
	ViewedAt time.Time `gorm:"not null" json:"viewed_at"`
}

func (StoryView) TableName() string {
	return "story_views"
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

func (sv *StoryView) BeforeCreate(tx *gorm.DB) error {
	if sv.ID == "" {
		sv.ID = generateUUID()
	}
	if sv.ViewedAt.IsZero() {
		sv.ViewedAt = time.Now().UTC()
	}
	return nil
}
