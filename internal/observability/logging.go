// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger so background code can log without importing
// the HTTP middleware package.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is replaced at startup by SetGlobalLogger.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil))}

// SetGlobalLogger routes observability logs through l so that they share the
// request-scoped handler configured at startup.
func SetGlobalLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

type correlationKey struct{}

// WithCorrelationID tags ctx with id, generating one when empty. Jobs use it
// to tie together every line of one run.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// LogJob records the outcome of one background job run.
func LogJob(ctx context.Context, job string, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("job", job),
		slog.String("correlation_id", CorrelationID(ctx)),
	)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		GlobalLogger.LogAttrs(ctx, slog.LevelError, "job failed", attrs...)
		return
	}
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "job finished", attrs...)
}

// WSLogger logs connection registry events under a fixed registry name.
type WSLogger struct {
	registry string
}

func NewWSLogger(registry string) *WSLogger {
	return &WSLogger{registry: registry}
}

func (l *WSLogger) attrs(userID uint, extra ...slog.Attr) []slog.Attr {
	out := []slog.Attr{slog.String("registry", l.registry)}
	if userID != 0 {
		out = append(out, slog.Uint64("user_id", uint64(userID)))
	}
	return append(out, extra...)
}

func (l *WSLogger) Connected(ctx context.Context, userID uint, replaced bool) {
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "websocket connected",
		l.attrs(userID, slog.Bool("replaced", replaced))...)
}

func (l *WSLogger) Disconnected(ctx context.Context, userID uint) {
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "websocket disconnected", l.attrs(userID)...)
}

// Failed logs a delivery step that failed for a room.
func (l *WSLogger) Failed(ctx context.Context, step, roomID string, err error) {
	GlobalLogger.LogAttrs(ctx, slog.LevelError, "websocket delivery failed",
		l.attrs(0, slog.String("step", step), slog.String("room_id", roomID), slog.String("error", err.Error()))...)
}

func (l *WSLogger) Received(ctx context.Context, userID uint, roomID string) {
	GlobalLogger.LogAttrs(ctx, slog.LevelDebug, "websocket frame received",
		l.attrs(userID, slog.String("room_id", roomID))...)
}

func (l *WSLogger) Stopped(ctx context.Context, closed int) {
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "registry stopped", l.attrs(0, slog.Int("closed", closed))...)
}
