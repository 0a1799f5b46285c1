// Package notifications provides real-time event delivery to websocket clients.
package notifications

import (
	"encoding/json"

	"github.com/aquawaran/Clon-Official/internal/models"
)

// EventKind names a realtime event type. It is sent as the frame "type".
type EventKind string

const (
	EventNewPost      EventKind = "new_post"
	EventPostReaction EventKind = "post_reaction"
	EventNewComment   EventKind = "new_comment"
	EventPostDeleted  EventKind = "post_deleted"
	EventNotification EventKind = "notification"
)

// Audience says whether an event goes to everyone or to one user.
type Audience string

const (
	AudienceAll  Audience = "all"
	AudienceUser Audience = "user"
)

// Event is a queued fan-out request.
type Event struct {
	Kind        EventKind
	Audience    Audience
	RecipientID string
	Payload     interface{}
}

// Frame is the JSON envelope written to websocket clients.
type Frame struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReactionPayload is sent with post_reaction.
type ReactionPayload struct {
	PostID    string             `json:"postId"`
	Reactions models.ReactionMap `json:"reactions"`
}

// CommentPayload is sent with new_comment.
type CommentPayload struct {
	PostID  string         `json:"postId"`
	Comment models.Comment `json:"comment"`
}

// PostDeletedPayload is sent with post_deleted.
type PostDeletedPayload struct {
	PostID string `json:"postId"`
}

// EncodeFrame marshals kind and payload into a wire frame.
func EncodeFrame(kind EventKind, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: kind, Payload: raw})
}
