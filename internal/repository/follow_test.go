package repository

import (
	"context"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/cache"
	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_Toggle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	ann := testutil.CreateUser(t, db, "Ann")
	bob := testutil.CreateUser(t, db, "Bob")

	following, err := repo.Toggle(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	ok, err := repo.IsFollowing(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IsFollowing(ctx, bob.ID, ann.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := repo.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, ann.ID, followers[0].ID)

	followees, err := repo.Following(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, followees, 1)
	assert.Equal(t, bob.ID, followees[0].ID)

	following, err = repo.Toggle(ctx, ann.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Zero(t, count)
}

func TestFollowRepository_CountsInvalidatedOnToggle(t *testing.T) {
	_, rdb := testutil.NewTestRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	ann := testutil.CreateUser(t, db, "Ann")
	bob := testutil.CreateUser(t, db, "Bob")

	counts, err := repo.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{}, counts)

	_, err = repo.Toggle(ctx, ann.ID, bob.ID)
	require.NoError(t, err)

	counts, err = repo.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{Followers: 1}, counts)

	counts, err = repo.Counts(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{Following: 1}, counts)
}
