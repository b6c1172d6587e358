// Package gdpr implements the data-subject-rights core: the deletion
// request workflow, full-account erasure, consent logging, privacy settings
// and data export.
package gdpr

import (
	"gorm.io/gorm"
)

// GracePeriodDays is the window between a deletion request and its
// execution, during which the user may cancel.
const GracePeriodDays = 30

// ConsentLogRetentionYears bounds how long consent logs are kept before the
// retention sweep hard-deletes them.
const ConsentLogRetentionYears = 3

// Service owns all GDPR reads and writes against the injected DB handle.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}
