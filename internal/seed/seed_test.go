package seed

import (
	"context"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestSeeder(t *testing.T) *Seeder {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	s := NewSeeder(testutil.NewTestDB(t), node, 42)
	s.cost = bcrypt.MinCost
	return s
}

func TestRun(t *testing.T) {
	s := newTestSeeder(t)
	ctx := context.Background()

	res, err := s.Run(ctx, Options{NumUsers: 8, NumPosts: 20})
	require.NoError(t, err)
	assert.Len(t, res.Users, 8)
	assert.Len(t, res.Posts, 20)

	var postCount, userCount int64
	require.NoError(t, s.db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, s.db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(20), postCount)
	assert.Equal(t, int64(8), userCount)

	userIDs := make(map[string]bool)
	for _, u := range res.Users {
		userIDs[u.ID] = true
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(DefaultPassword)))
	}

	var stored []models.Post
	require.NoError(t, s.db.Find(&stored).Error)
	comments := 0
	for _, p := range stored {
		assert.True(t, userIDs[p.AuthorID])
		assert.Equal(t, int64(1), p.Version)

		// Each user holds at most one reaction per post.
		seen := make(map[string]bool)
		for _, holders := range p.ReactionMap() {
			for _, id := range holders {
				assert.False(t, seen[id], "user %s reacted twice", id)
				seen[id] = true
			}
		}
		comments += len(p.CommentLedger())
	}
	assert.Equal(t, res.Comments, comments)
}

func TestRun_Clean(t *testing.T) {
	s := newTestSeeder(t)
	ctx := context.Background()

	_, err := s.Run(ctx, Options{NumUsers: 4, NumPosts: 5})
	require.NoError(t, err)
	_, err = s.Run(ctx, Options{NumUsers: 3, NumPosts: 2, ShouldClean: true})
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, s.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(2), posts)
}
