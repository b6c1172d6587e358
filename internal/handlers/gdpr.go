package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexus-social/backend/internal/gdpr"
)

// RequestAccountDeletion schedules the caller's account for erasure after
// the grace period
// POST /api/v1/gdpr/data/deletion-request
func (h *Handlers) RequestAccountDeletion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	// Reason is optional; an empty body is fine.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	request, err := h.gdpr.RequestDeletion(c.Request.Context(), user.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"request_id":            request.ID,
		"status":                request.Status,
		"scheduled_deletion_at": request.ScheduledDeletionAt.Format(time.RFC3339),
		"message":               "Account deletion scheduled. You can cancel within the grace period.",
	})
}

// CancelAccountDeletion cancels a pending deletion request
// DELETE /api/v1/gdpr/data/deletion-request
func (h *Handlers) CancelAccountDeletion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.gdpr.CancelDeletion(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account deletion cancelled",
	})
}

// GetDeletionRequest returns the caller's latest deletion request
// GET /api/v1/gdpr/data/deletion-request
func (h *Handlers) GetDeletionRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	request, err := h.gdpr.GetDeletionRequest(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// ExportData returns the caller's full data bundle
// GET /api/v1/gdpr/data/export
func (h *Handlers) ExportData(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	export, err := h.gdpr.ExportData(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, export)
}

// GetPrivacySettings returns the caller's privacy settings, defaults when
// never set
// GET /api/v1/gdpr/privacy/settings
func (h *Handlers) GetPrivacySettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	settings, err := h.gdpr.GetPrivacySettings(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdatePrivacySettings updates the caller's privacy settings
// PUT /api/v1/gdpr/privacy/settings
func (h *Handlers) UpdatePrivacySettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		DataRetentionDays  *int  `json:"data_retention_days,omitempty"`
		ClearRetentionDays bool  `json:"clear_retention_days,omitempty"`
		ProfileVisible     *bool `json:"profile_visible,omitempty"`
		AllowMessages      *bool `json:"allow_messages,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	settings, err := h.gdpr.UpdatePrivacySettings(c.Request.Context(), user.ID, gdpr.PrivacySettingsUpdate{
		DataRetentionDays:  req.DataRetentionDays,
		ClearRetentionDays: req.ClearRetentionDays,
		ProfileVisible:     req.ProfileVisible,
		AllowMessages:      req.AllowMessages,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateConsent appends a consent decision to the audit log
// POST /api/v1/gdpr/consent/update
func (h *Handlers) UpdateConsent(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		ConsentType  string `json:"consent_type" binding:"required"`
		ConsentGiven *bool  `json:"consent_given" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	entry, err := h.gdpr.RecordConsent(c.Request.Context(), user.ID, req.ConsentType, *req.ConsentGiven, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"consent": entry})
}

// GetConsentHistory returns the caller's consent log, newest first
// GET /api/v1/gdpr/consent/history
func (h *Handlers) GetConsentHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	history, err := h.gdpr.ConsentHistory(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}
