package notifications

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/aquawaran/Clon-Official/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull = errors.New("server connection limit reached")
	ErrUserFull   = errors.New("user connection limit reached")
)

// Hub maps user id to that user's live clients on this instance.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	presence   *Presence
	log        *observability.WSLogger
	closeOnce  sync.Once
}

// NewHub creates a Hub. With a Redis client, presence is shared across
// instances.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	h := &Hub{
		conns:    make(map[string]map[*Client]struct{}),
		presence: NewPresence(redisClient),
	}
	h.log = observability.NewWSLogger(h.Name())
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Register adds a connection for userID. It fails when either connection
// limit is reached.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerFull
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid string) {
		h.presence.Touch(context.Background(), uid)
	}

	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.presence.Connected(context.Background(), userID)
	h.log.LogConnect(context.Background(), userID)
	return client, nil
}

// UnregisterClient removes client from the hub and closes its send queue so
// WritePump exits.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.UserID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
			// Broadcasts send under the read lock, so none are in flight.
			client.close(nil)
		}
		if len(m) == 0 {
			delete(h.conns, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.presence.Disconnected(context.Background(), client.UserID)
		h.log.LogDisconnect(context.Background(), client.UserID, "closed")
	}
}

// Broadcast sends message to every connection of userID.
func (h *Hub) Broadcast(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		c.TrySend(message)
	}
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(message)
		}
	}
}

// ConnectionCount returns the number of live connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// IsOnline reports whether a user has a live connection on any instance.
func (h *Hub) IsOnline(userID string) bool {
	return h.presence.IsOnline(context.Background(), userID)
}

// StartWiring subscribes to the Redis notification channels and delivers
// every message to the matching local connections.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == BroadcastChannel {
			h.BroadcastAll([]byte(payload))
			return
		}
		userID, ok := strings.CutPrefix(channel, userChannelPrefix)
		if !ok || userID == "" {
			log.Printf("invalid notification channel: %s", channel)
			return
		}
		h.Broadcast(userID, []byte(payload))
	})
}

// Shutdown asks every client to close. Each WritePump sends a going-away
// close frame and closes its connection.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.closeOnce.Do(func() {
		goingAway := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")

		h.mu.Lock()
		for _, userConns := range h.conns {
			for client := range userConns {
				client.close(goingAway)
			}
		}
		observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
		h.conns = make(map[string]map[*Client]struct{})
		h.totalConns = 0
		h.mu.Unlock()

		h.presence.Reset(ctx)
		h.log.LogLifecycle(ctx, "shutdown")
	})
	return nil
}
