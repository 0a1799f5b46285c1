package notifications

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aquawaran/Clon-Official/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBufferSize = 256
)

var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between one websocket connection and its hub.
type Client struct {
	Hub WSHub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID string

	// IncomingHandler receives every inbound frame.
	IncomingHandler func(*Client, []byte)

	// OnActivity is called on every inbound frame or pong.
	OnActivity func(userID string)

	closeOnce sync.Once
	closeMsg  []byte
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump pumps messages from the websocket connection to the hub. On exit
// it unregisters the client, which stops WritePump.
func (c *Client) ReadPump() {
	defer c.Hub.UnregisterClient(c)

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ReadPump Error (User %s): %v", c.UserID, err)
			}
			break
		}
		c.touch()

		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, c.closeMsg)
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full buffer drops the message
// and tries to queue a messages_dropped notice so the client can re-fetch.
func (c *Client) TrySend(message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
	observability.NewWSLogger(c.Hub.Name()).LogLifecycle(context.Background(), "buffer_full",
		"user_id", c.UserID)

	// Make room for the notice by discarding the oldest queued frame.
	select {
	case <-c.Send:
	default:
	}
	select {
	case c.Send <- dropNotice:
	default:
	}
	return false
}

// close ends the outbound stream. WritePump sends msg as the close frame
// payload and then closes the connection. Safe to call more than once.
func (c *Client) close(msg []byte) {
	c.closeOnce.Do(func() {
		c.closeMsg = msg
		close(c.Send)
	})
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c.UserID)
	}
}
