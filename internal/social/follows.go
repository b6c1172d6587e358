// Package social exposes the follow-graph collaborator consumed by the
// story feed aggregator. Follow/unfollow endpoints themselves are served by
// the main application surface, not here.
package social

import (
	"context"

	"github.com/nexus-social/backend/internal/models"
	"gorm.io/gorm"
)

// FollowGraph answers "whom does this user follow". Injected into the story
// service so tests can substitute a fixed set.
type FollowGraph interface {
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
}

// GormFollowGraph reads the canonical follows table.
type GormFollowGraph struct {
	db *gorm.DB
}

func NewFollowGraph(db *gorm.DB) *GormFollowGraph {
	return &GormFollowGraph{db: db}
}

// FollowingIDs returns the followed_id set for a follower. A user who
// follows nobody gets an empty slice, not an error.
func (g *GormFollowGraph) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := g.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
