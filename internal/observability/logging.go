package observability

import (
	"context"
	"log/slog"
)

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableRepoLogging bool
	EnableWSLogging   bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging: true,
	EnableWSLogging:   true,
}

func logger() *slog.Logger {
	return slog.Default()
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	tableName string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

// LogWrite logs a repository write.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, attrs ...any) {
	if !Config.EnableRepoLogging {
		return
	}
	base := []any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}
	logger().DebugContext(ctx, "repository write", append(base, attrs...)...)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if !Config.EnableRepoLogging {
		return
	}
	logger().ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hubName string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hubName string) *WSLogger {
	return &WSLogger{hubName: hubName}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID string) {
	if !Config.EnableWSLogging {
		return
	}
	logger().InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID string, reason string) {
	if !Config.EnableWSLogging {
		return
	}
	logger().InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, userID string, err error, eventType string) {
	if !Config.EnableWSLogging {
		return
	}
	logger().ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("user_id", userID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogLifecycle logs a hub lifecycle event.
func (l *WSLogger) LogLifecycle(ctx context.Context, event string, attrs ...any) {
	if !Config.EnableWSLogging {
		return
	}
	base := []any{
		slog.String("hub", l.hubName),
		slog.String("event", event),
	}
	logger().InfoContext(ctx, "websocket lifecycle", append(base, attrs...)...)
}
