package database

import (
	"fmt"
	"os"
	"time"

	"github.com/nexus-social/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection and configures the pool. The handle
// is returned to the caller and injected into every service; there is no
// package-level DB.
func Connect(databaseURL string) (*gorm.DB, error) {
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate runs auto-migration for all models and creates query indexes.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		// Non-fatal: BeforeCreate hooks generate IDs client-side anyway.
		fmt.Fprintf(os.Stderr, "warning: could not create uuid-ossp extension: %v\n", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Message{},
		&models.Story{},
		&models.StoryView{},
		&models.DeletionRequest{},
		&models.ConsentLog{},
		&models.PrivacySetting{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return createIndexes(db)
}

// createIndexes creates the indexes the query patterns rely on: stories by
// (author, expiry), view lookups by (story, user), deletion requests by
// (status, due time), consent logs by owner and by age.
func createIndexes(db *gorm.DB) error {
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stories_author_expires ON stories (author_id, expires_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stories_expires ON stories (expires_at)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_story_views_pair ON story_views (story_id, user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_story_views_user ON story_views (user_id)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_deletion_status_due ON deletion_requests (status, scheduled_deletion_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_consent_logs_user ON consent_logs (user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_consent_logs_timestamp ON consent_logs (timestamp)")

	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_pair ON follows (follower_id, followed_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_follows_followed ON follows (followed_id)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_likes_post_user ON likes (post_id, user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_comments_author_created ON comments (author_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages (recipient_id)")

	return nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity.
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
