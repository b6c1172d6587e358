package retention

import (
	"context"
	"time"

	"github.com/nexus-social/backend/internal/config"
	"github.com/nexus-social/backend/internal/gdpr"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/metrics"
	"github.com/nexus-social/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Job names, used for logs, metrics and the one-shot CLI.
const (
	JobAccountErasure = "account_erasure"
	JobStaleData      = "stale_data"
	JobExpiredStories = "expired_stories"
	JobConsentLogs    = "consent_logs"
)

// Sweeper implements the four retention sweeps over the injected store.
type Sweeper struct {
	db      *gorm.DB
	gdpr    *gdpr.Service
	metrics *metrics.Metrics
}

func NewSweeper(db *gorm.DB, gdprService *gdpr.Service, m *metrics.Metrics) *Sweeper {
	return &Sweeper{db: db, gdpr: gdprService, metrics: m}
}

// Jobs builds the standard job set from configuration. The account-erasure
// and expired-story sweeps also run at startup.
func (s *Sweeper) Jobs(cfg config.RetentionConfig) []Job {
	return []Job{
		{
			Name:         JobAccountErasure,
			Trigger:      Daily{Hour: cfg.ErasureHour},
			RunAtStartup: true,
			Run:          s.AccountErasureSweep,
		},
		{
			Name:    JobStaleData,
			Trigger: Weekly{Day: cfg.StaleDataDay, Hour: cfg.StaleDataHour},
			Run:     s.StaleDataSweep,
		},
		{
			Name:         JobExpiredStories,
			Trigger:      Every{Interval: cfg.StorySweepEvery},
			RunAtStartup: true,
			Run:          s.ExpiredStorySweep,
		},
		{
			Name:    JobConsentLogs,
			Trigger: Daily{Hour: cfg.ConsentLogHour},
			Run:     s.ConsentLogSweep,
		},
	}
}

// RunJob executes a single sweep by name. Used by the one-shot CLI.
func (s *Sweeper) RunJob(ctx context.Context, name string) bool {
	switch name {
	case JobAccountErasure:
		s.AccountErasureSweep(ctx)
	case JobStaleData:
		s.StaleDataSweep(ctx)
	case JobExpiredStories:
		s.ExpiredStorySweep(ctx)
	case JobConsentLogs:
		s.ConsentLogSweep(ctx)
	default:
		return false
	}
	return true
}

// AccountErasureSweep claims every pending deletion request whose grace
// window has elapsed and executes full-account erasure per request. One
// request's failure is recorded on that request and never aborts the sweep
// for the others.
func (s *Sweeper) AccountErasureSweep(ctx context.Context) {
	start := time.Now()
	defer s.observe(JobAccountErasure, start)

	requests, err := s.gdpr.DueRequests(ctx, time.Now().UTC())
	if err != nil {
		logger.ErrorWithFields("failed to query due deletion requests", err)
		return
	}
	if len(requests) == 0 {
		logger.Log.Debug("no accounts due for erasure")
		return
	}

	erased := 0
	failed := 0
	for _, request := range requests {
		if err := s.gdpr.Claim(ctx, request.ID); err != nil {
			logger.Log.Error("failed to claim deletion request",
				zap.String("request_id", request.ID), zap.Error(err))
			failed++
			continue
		}

		if err := s.gdpr.EraseAccount(ctx, request.UserID); err != nil {
			logger.Log.Error("account erasure failed",
				zap.String("request_id", request.ID),
				logger.WithUserID(request.UserID),
				zap.Error(err),
			)
			if markErr := s.gdpr.MarkFailed(ctx, request.ID, err); markErr != nil {
				logger.ErrorWithFields("failed to mark deletion request failed", markErr)
			}
			failed++
			continue
		}

		if err := s.gdpr.MarkCompleted(ctx, request.ID); err != nil {
			logger.ErrorWithFields("failed to mark deletion request completed", err)
			failed++
			continue
		}
		erased++
	}

	s.count(JobAccountErasure, erased, failed)
	logger.Log.Info("account erasure sweep completed",
		zap.Int("erased", erased),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
}

// StaleDataSweep deletes posts and comments older than each user's
// configured retention window. Users without a retention setting are
// skipped. Failures are isolated per user.
func (s *Sweeper) StaleDataSweep(ctx context.Context) {
	start := time.Now()
	defer s.observe(JobStaleData, start)

	settings, err := s.gdpr.RetentionPolicies(ctx)
	if err != nil {
		logger.ErrorWithFields("failed to query retention policies", err)
		return
	}
	if len(settings) == 0 {
		logger.Log.Debug("no retention policies configured")
		return
	}

	now := time.Now().UTC()
	totalDeleted := 0
	failed := 0
	for _, setting := range settings {
		if setting.DataRetentionDays == nil {
			continue
		}
		cutoff := now.AddDate(0, 0, -*setting.DataRetentionDays)

		posts := s.db.WithContext(ctx).
			Where("author_id = ? AND created_at < ?", setting.UserID, cutoff).
			Delete(&models.Post{})
		if posts.Error != nil {
			logger.Log.Error("stale post cleanup failed",
				logger.WithUserID(setting.UserID), zap.Error(posts.Error))
			failed++
			continue
		}

		comments := s.db.WithContext(ctx).
			Where("author_id = ? AND created_at < ?", setting.UserID, cutoff).
			Delete(&models.Comment{})
		if comments.Error != nil {
			logger.Log.Error("stale comment cleanup failed",
				logger.WithUserID(setting.UserID), zap.Error(comments.Error))
			failed++
			continue
		}

		deleted := int(posts.RowsAffected + comments.RowsAffected)
		totalDeleted += deleted
		if deleted > 0 {
			logger.Log.Info("stale data removed",
				logger.WithUserID(setting.UserID),
				zap.Int("deleted", deleted),
				zap.Int("retention_days", *setting.DataRetentionDays),
			)
		}
	}

	s.count(JobStaleData, totalDeleted, failed)
	logger.Log.Info("stale data sweep completed",
		zap.Int("deleted", totalDeleted),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
}

// ExpiredStorySweep hard-deletes all stories past their expiry, cascading
// their view rows. Display visibility already filters on expires_at, so
// the sweep's timing is decoupled from what users see.
func (s *Sweeper) ExpiredStorySweep(ctx context.Context) {
	start := time.Now()
	defer s.observe(JobExpiredStories, start)

	var expired []models.Story
	err := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Find(&expired).Error
	if err != nil {
		logger.ErrorWithFields("failed to query expired stories", err)
		return
	}
	if len(expired) == 0 {
		logger.Log.Debug("no expired stories to clean up")
		return
	}

	deleted := 0
	viewsDeleted := 0
	failed := 0
	for _, story := range expired {
		views := s.db.WithContext(ctx).
			Where("story_id = ?", story.ID).
			Delete(&models.StoryView{})
		if views.Error != nil {
			logger.Log.Error("failed to delete story views",
				logger.WithStoryID(story.ID), zap.Error(views.Error))
			failed++
			continue
		}
		viewsDeleted += int(views.RowsAffected)

		if err := s.db.WithContext(ctx).Delete(&models.Story{}, "id = ?", story.ID).Error; err != nil {
			logger.Log.Error("failed to delete expired story",
				logger.WithStoryID(story.ID), zap.Error(err))
			failed++
			continue
		}
		deleted++
	}

	s.count(JobExpiredStories, deleted, failed)
	logger.Log.Info("expired story sweep completed",
		zap.Int("stories_deleted", deleted),
		zap.Int("views_deleted", viewsDeleted),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
}

// ConsentLogSweep hard-deletes consent logs older than the legal retention
// period (three years).
func (s *Sweeper) ConsentLogSweep(ctx context.Context) {
	start := time.Now()
	defer s.observe(JobConsentLogs, start)

	cutoff := time.Now().UTC().AddDate(-gdpr.ConsentLogRetentionYears, 0, 0)
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.ConsentLog{})
	if result.Error != nil {
		logger.ErrorWithFields("consent log cleanup failed", result.Error)
		s.count(JobConsentLogs, 0, 1)
		return
	}

	s.count(JobConsentLogs, int(result.RowsAffected), 0)
	logger.Log.Info("consent log sweep completed",
		zap.Int64("deleted", result.RowsAffected),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Sweeper) observe(job string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepRunsTotal.WithLabelValues(job).Inc()
	s.metrics.SweepDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

func (s *Sweeper) count(job string, deleted, failed int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepDeletedTotal.WithLabelValues(job).Add(float64(deleted))
	s.metrics.SweepFailuresTotal.WithLabelValues(job).Add(float64(failed))
}
