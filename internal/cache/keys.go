package cache

import (
	"context"
	"fmt"
	"time"
)

const FollowCountPrefix = "user:%s:follow_counts"

const FollowCountTTL = time.Minute

func FollowCountKey(userID string) string {
	return fmt.Sprintf(FollowCountPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateFollowCounts(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, FollowCountKey(id))
	}
	Invalidate(ctx, keys...)
}
