package stories

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nexus-social/backend/internal/apperr"
	"github.com/nexus-social/backend/internal/logger"
	"github.com/nexus-social/backend/internal/models"
	"github.com/nexus-social/backend/internal/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

type StoriesServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *Service
}

func (suite *StoriesServiceTestSuite) SetupSuite() {
	host := getEnvOrDefault("POSTGRES_HOST", "localhost")
	port := getEnvOrDefault("POSTGRES_PORT", "5432")
	user := getEnvOrDefault("POSTGRES_USER", "postgres")
	password := os.Getenv("POSTGRES_PASSWORD")
	dbname := getEnvOrDefault("POSTGRES_DB", "nexus_social_test")

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
	if password != "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		suite.T().Skipf("Skipping story service tests: database not available (%v)", err)
		return
	}

	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Story{},
		&models.StoryView{},
	))

	suite.db = db
	suite.service = NewService(db, social.NewFollowGraph(db))
}

func (suite *StoriesServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM story_views")
	suite.db.Exec("DELETE FROM stories")
	suite.db.Exec("DELETE FROM follows")
	suite.db.Exec("DELETE FROM users")
}

func (suite *StoriesServiceTestSuite) createUser(username string) *models.User {
	user := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
		ProfilePic:  "https://cdn.example.com/" + username + ".jpg",
	}
	require.NoError(suite.T(), suite.db.Create(user).Error)
	return user
}

func (suite *StoriesServiceTestSuite) follow(follower, followed *models.User) {
	require.NoError(suite.T(), suite.db.Create(&models.Follow{
		FollowerID: follower.ID,
		FollowedID: followed.ID,
	}).Error)
}

// createStoryAt inserts a story directly with a chosen creation time, so
// tests can place stories in the past.
func (suite *StoriesServiceTestSuite) createStoryAt(author *models.User, createdAt time.Time) *models.Story {
	story := &models.Story{
		AuthorID:         author.ID,
		AuthorUsername:   author.Username,
		AuthorProfilePic: author.ProfilePic,
		MediaType:        models.MediaTypeImage,
		MediaURL:         "https://cdn.example.com/media.jpg",
		CreatedAt:        createdAt,
		ExpiresAt:        ComputeExpiry(createdAt),
	}
	require.NoError(suite.T(), suite.db.Create(story).Error)
	return story
}

func (suite *StoriesServiceTestSuite) TestCreateStory() {
	t := suite.T()
	author := suite.createUser("alice")

	before := time.Now().UTC()
	story, err := suite.service.Create(context.Background(), author, models.MediaTypeVideo, "https://cdn.example.com/clip.mp4")
	require.NoError(t, err)

	assert.Equal(t, author.ID, story.AuthorID)
	assert.Equal(t, "alice", story.AuthorUsername)
	assert.Equal(t, author.ProfilePic, story.AuthorProfilePic)
	assert.Equal(t, models.MediaTypeVideo, story.MediaType)
	assert.Equal(t, 24*time.Hour, story.ExpiresAt.Sub(story.CreatedAt))
	assert.False(t, story.CreatedAt.Before(before))
}

func (suite *StoriesServiceTestSuite) TestCreateStoryValidation() {
	t := suite.T()
	author := suite.createUser("alice")

	_, err := suite.service.Create(context.Background(), author, "gif", "https://cdn.example.com/a.gif")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Equal(t, "media_type", appErr.Field)

	_, err = suite.service.Create(context.Background(), author, models.MediaTypeImage, "")
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "media_url", appErr.Field)
}

func (suite *StoriesServiceTestSuite) TestFeedGroupsAndOrdersByNewestStory() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	suite.follow(viewer, alice)
	suite.follow(viewer, bob)

	now := time.Now().UTC()
	suite.createStoryAt(alice, now.Add(-5*time.Hour))
	suite.createStoryAt(alice, now.Add(-1*time.Hour)) // alice's newest
	suite.createStoryAt(bob, now.Add(-2*time.Hour))   // bob's newest

	groups, err := suite.service.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)

	require.Len(t, groups, 2)
	assert.Equal(t, "alice", groups[0].User.Username, "group with the newest story comes first")
	assert.Equal(t, "bob", groups[1].User.Username)
	assert.Len(t, groups[0].Stories, 2)
	assert.Len(t, groups[1].Stories, 1)
}

func (suite *StoriesServiceTestSuite) TestFeedExcludesExpiredStories() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")
	suite.follow(viewer, alice)

	now := time.Now().UTC()
	suite.createStoryAt(alice, now.Add(-25*time.Hour)) // expired
	live := suite.createStoryAt(alice, now.Add(-1*time.Hour))

	groups, err := suite.service.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Stories, 1)
	assert.Equal(t, live.ID, groups[0].Stories[0].ID)
}

func (suite *StoriesServiceTestSuite) TestFeedIncludesOwnStoriesWithoutFollows() {
	t := suite.T()
	loner := suite.createUser("loner")
	suite.createStoryAt(loner, time.Now().UTC().Add(-time.Hour))

	groups, err := suite.service.Feed(context.Background(), loner.ID)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, loner.ID, groups[0].User.ID)
}

func (suite *StoriesServiceTestSuite) TestFeedEmptyForNewUser() {
	t := suite.T()
	viewer := suite.createUser("viewer")

	groups, err := suite.service.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func (suite *StoriesServiceTestSuite) TestFeedAnnotatesHasViewed() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")
	suite.follow(viewer, alice)

	now := time.Now().UTC()
	seen := suite.createStoryAt(alice, now.Add(-3*time.Hour))
	unseen := suite.createStoryAt(alice, now.Add(-1*time.Hour))
	require.NoError(t, suite.service.RecordView(context.Background(), seen.ID, viewer.ID))

	groups, err := suite.service.Feed(context.Background(), viewer.ID)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	byID := map[string]bool{}
	for _, item := range groups[0].Stories {
		byID[item.ID] = item.HasViewed
	}
	assert.True(t, byID[seen.ID])
	assert.False(t, byID[unseen.ID])
}

func (suite *StoriesServiceTestSuite) TestUserStoriesAscendingOrder() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")

	now := time.Now().UTC()
	older := suite.createStoryAt(alice, now.Add(-3*time.Hour))
	newer := suite.createStoryAt(alice, now.Add(-1*time.Hour))

	items, err := suite.service.UserStories(context.Background(), alice.ID, viewer.ID)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, older.ID, items[0].ID)
	assert.Equal(t, newer.ID, items[1].ID)
}

func (suite *StoriesServiceTestSuite) TestUserStoriesUnknownAuthor() {
	t := suite.T()
	viewer := suite.createUser("viewer")

	_, err := suite.service.UserStories(context.Background(), "00000000-0000-0000-0000-000000000000", viewer.ID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func (suite *StoriesServiceTestSuite) TestRecordViewIsIdempotent() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")
	story := suite.createStoryAt(alice, time.Now().UTC().Add(-time.Hour))

	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, viewer.ID))
	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, viewer.ID))

	var viewCount int64
	suite.db.Model(&models.StoryView{}).Where("story_id = ?", story.ID).Count(&viewCount)
	assert.EqualValues(t, 1, viewCount)

	var fresh models.Story
	require.NoError(t, suite.db.First(&fresh, "id = ?", story.ID).Error)
	assert.Equal(t, 1, fresh.ViewsCount)
}

func (suite *StoriesServiceTestSuite) TestRecordViewByAuthorCounts() {
	t := suite.T()
	alice := suite.createUser("alice")
	story := suite.createStoryAt(alice, time.Now().UTC().Add(-time.Hour))

	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, alice.ID))

	var fresh models.Story
	require.NoError(t, suite.db.First(&fresh, "id = ?", story.ID).Error)
	assert.Equal(t, 1, fresh.ViewsCount)
}

func (suite *StoriesServiceTestSuite) TestRecordViewMissingStoryIsNoop() {
	t := suite.T()
	viewer := suite.createUser("viewer")

	err := suite.service.RecordView(context.Background(), "00000000-0000-0000-0000-000000000000", viewer.ID)
	assert.NoError(t, err)
}

func (suite *StoriesServiceTestSuite) TestDeleteCascadesViews() {
	t := suite.T()
	viewer := suite.createUser("viewer")
	alice := suite.createUser("alice")
	story := suite.createStoryAt(alice, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, viewer.ID))

	require.NoError(t, suite.service.Delete(context.Background(), story.ID, alice.ID))

	var storyCount, viewCount int64
	suite.db.Model(&models.Story{}).Where("id = ?", story.ID).Count(&storyCount)
	suite.db.Model(&models.StoryView{}).Where("story_id = ?", story.ID).Count(&viewCount)
	assert.Zero(t, storyCount)
	assert.Zero(t, viewCount)
}

func (suite *StoriesServiceTestSuite) TestDeleteByNonAuthorForbidden() {
	t := suite.T()
	alice := suite.createUser("alice")
	mallory := suite.createUser("mallory")
	story := suite.createStoryAt(alice, time.Now().UTC().Add(-time.Hour))

	err := suite.service.Delete(context.Background(), story.ID, mallory.ID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func (suite *StoriesServiceTestSuite) TestListViewersAuthorOnly() {
	t := suite.T()
	alice := suite.createUser("alice")
	bob := suite.createUser("bob")
	carol := suite.createUser("carol")
	story := suite.createStoryAt(alice, time.Now().UTC().Add(-time.Hour))

	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, bob.ID))
	require.NoError(t, suite.service.RecordView(context.Background(), story.ID, carol.ID))

	viewers, err := suite.service.ListViewers(context.Background(), story.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, viewers, 2)
	usernames := []string{viewers[0].Username, viewers[1].Username}
	assert.Contains(t, usernames, "bob")
	assert.Contains(t, usernames, "carol")

	_, err = suite.service.ListViewers(context.Background(), story.ID, bob.ID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, appErr.Code)
}

func TestStoriesServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StoriesServiceTestSuite))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
