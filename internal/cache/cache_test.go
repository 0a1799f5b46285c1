package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	return mr
}

func TestAside_NoClientAlwaysFetches(t *testing.T) {
	SetClient(nil)
	calls := 0
	var u cachedCounts
	for i := 0; i < 2; i++ {
		err := Aside(context.Background(), FollowCountKey("a"), &u, FollowCountTTL, func() error {
			calls++
			u = cachedCounts{Followers: 3, Following: 1}
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestAside_StoresAndServesFromRedis(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *cachedCounts) func() error {
		return func() error {
			calls++
			*dest = cachedCounts{Followers: 3, Following: 1}
			return nil
		}
	}

	var first cachedCounts
	require.NoError(t, Aside(ctx, FollowCountKey("a"), &first, FollowCountTTL, fetch(&first)))
	assert.True(t, mr.Exists("user:a:follow_counts"))

	var second cachedCounts
	require.NoError(t, Aside(ctx, FollowCountKey("a"), &second, FollowCountTTL, fetch(&second)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(3), second.Followers)

	InvalidateFollowCounts(ctx, "a")
	assert.False(t, mr.Exists("user:a:follow_counts"))

	mr.FastForward(FollowCountTTL + time.Second)
	var third cachedCounts
	require.NoError(t, Aside(ctx, FollowCountKey("a"), &third, FollowCountTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("boom")
	var u cachedCounts
	err := Aside(context.Background(), FollowCountKey("b"), &u, FollowCountTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:b:follow_counts"))
}
