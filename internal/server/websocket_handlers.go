package server

import (
	"context"
	"log"

	"github.com/aquawaran/Clon-Official/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/tidwall/gjson"
)

var pongFrame = []byte(`{"type":"pong","payload":{}}`)

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(string)
		if !ok || userID == "" {
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket: failed to register user %s: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		client.IncomingHandler = s.handleClientFrame

		if hello, err := notifications.EncodeFrame("connected", fiber.Map{"user_id": userID}); err == nil {
			client.TrySend(hello)
		}

		// The connection is released when this handler returns, so wait for
		// WritePump to flush its close frame first.
		done := make(chan struct{})
		go func() {
			client.WritePump()
			close(done)
		}()
		client.ReadPump()
		<-done
	})
}

// handleClientFrame answers the few frames clients may send. Everything
// else is ignored; the connection is receive-only for domain events.
func (s *Server) handleClientFrame(c *notifications.Client, message []byte) {
	if !gjson.ValidBytes(message) {
		return
	}

	switch gjson.GetBytes(message, "type").String() {
	case "ping":
		c.TrySend(pongFrame)

	case "presence":
		// {"type":"presence","payload":{"user_ids":["a","b"]}}
		online := make(map[string]bool)
		gjson.GetBytes(message, "payload.user_ids").ForEach(func(_, v gjson.Result) bool {
			if id := v.String(); id != "" && len(online) < 100 {
				online[id] = s.hub.IsOnline(id)
			}
			return true
		})
		frame, err := notifications.EncodeFrame("presence", fiber.Map{"online": online})
		if err != nil {
			log.Printf("marshal presence frame: %v", err)
			return
		}
		c.TrySend(frame)

	case "unread":
		count, err := s.notificationService.UnreadCount(context.Background(), c.UserID)
		if err != nil {
			return
		}
		if frame, err := notifications.EncodeFrame("unread", fiber.Map{"count": count}); err == nil {
			c.TrySend(frame)
		}
	}
}
