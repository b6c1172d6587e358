package models

import (
	"time"

	"gorm.io/gorm"
)

// Deletion request states. pending and processing count as "active": a user
// may hold at most one active request at a time. Terminal states never
// revert.
const (
	DeletionStatusPending    = "pending"
	DeletionStatusProcessing = "processing"
	DeletionStatusCompleted  = "completed"
	DeletionStatusFailed     = "failed"
)

// AnonymizedUserID replaces user_id on consent logs when the owning account
// is erased, keeping the audit trail without personal data.
const AnonymizedUserID = "DELETED_USER"

// DeletionRequest tracks a user-initiated account erasure from submission
// through the 30-day grace window to execution by the retention scheduler.
type DeletionRequest struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	Reason string `gorm:"type:text" json:"reason,omitempty"`

	Status string `gorm:"not null;default:pending;index:idx_deletion_status_due" json:"status"`

	RequestedAt         time.Time  `gorm:"not null" json:"requested_at"`
	ScheduledDeletionAt time.Time  `gorm:"not null;index:idx_deletion_status_due" json:"scheduled_deletion_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Error               string     `gorm:"type:text" json:"error,omitempty"`
}

// Active reports whether the request still blocks a new submission.
func (r *DeletionRequest) Active() bool {
	return r.Status == DeletionStatusPending || r.Status == DeletionStatusProcessing
}

// ConsentLog is an append-only audit row. Rows are anonymized, never
// deleted, when their owning account is erased; the scheduler hard-deletes
// rows older than three years.
type ConsentLog struct {
	ID           string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string    `gorm:"not null;index" json:"user_id"`
	ConsentType  string    `gorm:"not null" json:"consent_type"`
	ConsentGiven bool      `gorm:"not null" json:"consent_given"`
	Anonymized   bool      `gorm:"default:false" json:"anonymized"`
	Timestamp    time.Time `gorm:"not null;index" json:"timestamp"`
	IPAddress    string    `json:"ip_address,omitempty"`
}

// PrivacySetting holds a user's per-account privacy choices. A nil
// DataRetentionDays opts the user out of the stale-data sweep.
type PrivacySetting struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	DataRetentionDays *int `json:"data_retention_days,omitempty"`
	ProfileVisible    bool `gorm:"default:true" json:"profile_visible"`
	AllowMessages     bool `gorm:"default:true" json:"allow_messages"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (r *DeletionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (c *ConsentLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

func (p *PrivacySetting) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
