// Package seed fills a development database with realistic fake data.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/models"
	"github.com/nexus-social/backend/internal/stories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("creating users")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("creating follow graph")
	if err := s.seedFollows(users); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("creating posts and comments")
	posts, err := s.seedPosts(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	if err := s.seedComments(users, posts, 400); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}
	if err := s.seedLikes(users, posts, 600); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	logger.Log.Info("creating messages")
	if err := s.seedMessages(users, 300); err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}

	logger.Log.Info("creating stories")
	if err := s.seedStories(users); err != nil {
		return fmt.Errorf("failed to seed stories: %w", err)
	}

	logger.Log.Info("creating privacy settings and consent logs")
	if err := s.seedPrivacyAndConsent(users); err != nil {
		return fmt.Errorf("failed to seed privacy data: %w", err)
	}

	logger.Log.Info("seeding complete", zap.Int("users", len(users)))
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	// Re-running the seeder should not duplicate users.
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		var users []models.User
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("found existing seed users, skipping creation",
			zap.Int("total_users", len(users)))
		return users, nil
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		user := models.User{
			Email:       fmt.Sprintf("%s@example.com", username),
			Username:    username,
			DisplayName: gofakeit.Name(),
			Bio:         gofakeit.Sentence(8),
			ProfilePic:  fmt.Sprintf("https://cdn.example.com/avatars/%s.jpg", username),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedFollows(users []models.User) error {
	for _, follower := range users {
		followCount := rand.Intn(8) + 2
		for j := 0; j < followCount; j++ {
			followed := users[rand.Intn(len(users))]
			if followed.ID == follower.ID {
				continue
			}

			follow := models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}
			result := s.db.Where(&follow).FirstOrCreate(&follow)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				continue
			}

			if err := s.db.Model(&models.User{}).Where("id = ?", followed.ID).
				UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error; err != nil {
				return err
			}
			if err := s.db.Model(&models.User{}).Where("id = ?", follower.ID).
				UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := models.Post{
			AuthorID:  author.ID,
			Content:   gofakeit.Paragraph(1, 3, 10, " "),
			CreatedAt: gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now()),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		post := posts[rand.Intn(len(posts))]
		author := users[rand.Intn(len(users))]
		comment := models.Comment{
			PostID:    post.ID,
			AuthorID:  author.ID,
			Content:   gofakeit.Sentence(12),
			CreatedAt: gofakeit.DateRange(post.CreatedAt, time.Now()),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedLikes(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		post := posts[rand.Intn(len(posts))]
		user := users[rand.Intn(len(users))]

		like := models.Like{PostID: post.ID, UserID: user.ID}
		result := s.db.Where(&like).FirstOrCreate(&like)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedMessages(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		sender := users[rand.Intn(len(users))]
		recipient := users[rand.Intn(len(users))]
		if sender.ID == recipient.ID {
			continue
		}
		message := models.Message{
			SenderID:    sender.ID,
			RecipientID: recipient.ID,
			Content:     gofakeit.Sentence(10),
			CreatedAt:   gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
		}
		if err := s.db.Create(&message).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedStories creates a mix of live and already-expired stories, plus view
// rows, so both the feed and the expiry sweep have data to work with.
func (s *Seeder) seedStories(users []models.User) error {
	mediaTypes := []string{models.MediaTypeImage, models.MediaTypeVideo}

	for _, author := range users {
		storyCount := rand.Intn(4)
		for j := 0; j < storyCount; j++ {
			// Roughly a third land in the past, beyond the 24h lifetime.
			createdAt := time.Now().UTC().Add(-time.Duration(rand.Intn(36)) * time.Hour)
			mediaType := mediaTypes[rand.Intn(len(mediaTypes))]

			story := models.Story{
				AuthorID:         author.ID,
				AuthorUsername:   author.Username,
				AuthorProfilePic: author.ProfilePic,
				MediaType:        mediaType,
				MediaURL:         fmt.Sprintf("https://cdn.example.com/stories/%s.%s", gofakeit.UUID(), mediaType),
				CreatedAt:        createdAt,
				ExpiresAt:        stories.ComputeExpiry(createdAt),
			}
			if err := s.db.Create(&story).Error; err != nil {
				return err
			}

			viewerCount := rand.Intn(6)
			for k := 0; k < viewerCount && k < len(users); k++ {
				viewer := users[rand.Intn(len(users))]
				view := models.StoryView{
					StoryID:  story.ID,
					UserID:   viewer.ID,
					ViewedAt: gofakeit.DateRange(createdAt, time.Now()),
				}
				result := s.db.Where(models.StoryView{StoryID: story.ID, UserID: viewer.ID}).FirstOrCreate(&view)
				if result.Error != nil {
					return result.Error
				}
				if result.RowsAffected == 0 {
					continue
				}
				if err := s.db.Model(&models.Story{}).Where("id = ?", story.ID).
					UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error; err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Seeder) seedPrivacyAndConsent(users []models.User) error {
	consentTypes := []string{"analytics", "marketing", "personalization"}

	for _, user := range users {
		setting := models.PrivacySetting{
			UserID:         user.ID,
			ProfileVisible: rand.Intn(10) > 1,
			AllowMessages:  rand.Intn(10) > 2,
		}
		// A few users opt into a short retention window so the stale-data
		// sweep has something to do.
		if rand.Intn(5) == 0 {
			days := 30 + rand.Intn(300)
			setting.DataRetentionDays = &days
		}
		if err := s.db.Where(models.PrivacySetting{UserID: user.ID}).FirstOrCreate(&setting).Error; err != nil {
			return err
		}

		for _, consentType := range consentTypes {
			entry := models.ConsentLog{
				UserID:       user.ID,
				ConsentType:  consentType,
				ConsentGiven: rand.Intn(3) > 0,
				Timestamp:    gofakeit.DateRange(time.Now().AddDate(-2, 0, 0), time.Now()),
				IPAddress:    gofakeit.IPv4Address(),
			}
			if err := s.db.Create(&entry).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
