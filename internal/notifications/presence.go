package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	// Refreshed on every frame or pong; pongs arrive well inside this window.
	presenceTTL = 90 * time.Second
)

// Presence answers "is this user connected anywhere". Each instance counts its
// own connections; with Redis, a per-user connection counter shared by all
// instances is kept alive by activity and expires if an instance dies without
// decrementing it.
type Presence struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local map[string]int
}

// NewPresence creates a Presence. rdb may be nil for single-instance setups.
func NewPresence(rdb *redis.Client) *Presence {
	return &Presence{rdb: rdb, local: make(map[string]int)}
}

func presenceKey(userID string) string {
	return presenceKeyPrefix + userID
}

// Connected records a new connection for userID.
func (p *Presence) Connected(ctx context.Context, userID string) {
	p.mu.Lock()
	p.local[userID]++
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	pipe := p.rdb.TxPipeline()
	pipe.Incr(ctx, presenceKey(userID))
	pipe.Expire(ctx, presenceKey(userID), presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "presence connect failed", "user_id", userID, "error", err)
	}
}

// Disconnected drops one connection for userID.
func (p *Presence) Disconnected(ctx context.Context, userID string) {
	p.mu.Lock()
	if p.local[userID] <= 1 {
		delete(p.local, userID)
	} else {
		p.local[userID]--
	}
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	n, err := p.rdb.Decr(ctx, presenceKey(userID)).Result()
	if err != nil {
		slog.WarnContext(ctx, "presence disconnect failed", "user_id", userID, "error", err)
		return
	}
	if n <= 0 {
		p.rdb.Del(ctx, presenceKey(userID))
	}
}

// Touch extends the shared counter's lifetime after client activity.
func (p *Presence) Touch(ctx context.Context, userID string) {
	if p.rdb == nil {
		return
	}
	if err := p.rdb.Expire(ctx, presenceKey(userID), presenceTTL).Err(); err != nil {
		slog.WarnContext(ctx, "presence touch failed", "user_id", userID, "error", err)
	}
}

// IsOnline reports whether userID has a connection on this or any instance.
func (p *Presence) IsOnline(ctx context.Context, userID string) bool {
	p.mu.RLock()
	n := p.local[userID]
	p.mu.RUnlock()
	if n > 0 {
		return true
	}
	if p.rdb == nil {
		return false
	}
	count, err := p.rdb.Get(ctx, presenceKey(userID)).Int64()
	return err == nil && count > 0
}

// Reset forgets local connections, releasing their share of the Redis
// counters. Used when the hub shuts down.
func (p *Presence) Reset(ctx context.Context) {
	p.mu.Lock()
	local := p.local
	p.local = make(map[string]int)
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	for userID, n := range local {
		if left, err := p.rdb.DecrBy(ctx, presenceKey(userID), int64(n)).Result(); err == nil && left <= 0 {
			p.rdb.Del(ctx, presenceKey(userID))
		}
	}
}
