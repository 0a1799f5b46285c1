package notifications

import (
	"context"
	"log"
	"runtime/debug"

	"github.com/redis/go-redis/v9"
)

const (
	// BroadcastChannel carries events for every connected user.
	BroadcastChannel  = "notifications:broadcast"
	userChannelPrefix = "notifications:user:"
	userChannelGlob   = userChannelPrefix + "*"
)

// Notifier publishes frames to the Redis notification channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a frame to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a frame to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to the user and broadcast channels and
// calls onMessage for each message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelGlob, BroadcastChannel)
	// Wait for the subscription to be confirmed so nothing published
	// afterwards is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}
