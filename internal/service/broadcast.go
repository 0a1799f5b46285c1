package service

import "github.com/aquawaran/Clon-Official/internal/notifications"

// Broadcaster publishes realtime events. Implementations must not block.
type Broadcaster interface {
	EmitAll(kind notifications.EventKind, payload interface{})
	EmitTo(userID string, kind notifications.EventKind, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) EmitAll(notifications.EventKind, interface{})         {}
func (noopBroadcaster) EmitTo(string, notifications.EventKind, interface{}) {}

func orNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
