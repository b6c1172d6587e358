package handlers

import (
	"github.com/nexus-social/backend/internal/auth"
	"github.com/nexus-social/backend/internal/gdpr"
	"github.com/nexus-social/backend/internal/metrics"
	"github.com/nexus-social/backend/internal/stories"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db      *gorm.DB
	auth    *auth.Service
	stories *stories.Service
	gdpr    *gdpr.Service
	metrics *metrics.Metrics
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, authService *auth.Service, storyService *stories.Service, gdprService *gdpr.Service) *Handlers {
	return &Handlers{
		db:      db,
		auth:    authService,
		stories: storyService,
		gdpr:    gdprService,
	}
}

// SetMetrics wires the Prometheus collectors. Optional; handlers work
// without them.
func (h *Handlers) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}
