package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account. Password handling and token issuance live in
// the identity service; this backend only reads profile fields and the
// deletion flag.
type User struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	ProfilePic  string `gorm:"type:text" json:"profile_pic"`

	FollowersCount int `gorm:"default:0" json:"followers_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`

	// Set while an account-deletion request is pending; cleared on cancel.
	DeletionScheduled bool `gorm:"default:false" json:"deletion_scheduled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Post is a permanent publication, as opposed to an ephemeral Story.
// The retention sweeps and account erasure act on posts; the post CRUD
// surface itself is served elsewhere.
type Post struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AuthorID      string    `gorm:"not null;index" json:"author_id"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	LikesCount    int       `gorm:"default:0" json:"likes_count"`
	CommentsCount int       `gorm:"default:0" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// Comment on a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID    string    `gorm:"not null;index" json:"post_id"`
	AuthorID  string    `gorm:"not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Like marks a user's like on a post. One like per (post, user).
type Like struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID    string    `gorm:"not null;index:idx_likes_post_user,unique" json:"post_id"`
	UserID    string    `gorm:"not null;index:idx_likes_post_user,unique" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Follow is the canonical follow edge: follower_id follows followed_id.
type Follow struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FollowerID string    `gorm:"not null;index:idx_follows_pair,unique" json:"follower_id"`
	FollowedID string    `gorm:"not null;index:idx_follows_pair,unique;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message is a direct message between two users.
type Message struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SenderID    string    `gorm:"not null;index" json:"sender_id"`
	RecipientID string    `gorm:"not null;index" json:"recipient_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
