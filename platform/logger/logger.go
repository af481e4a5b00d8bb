// Package logger wraps slog with the request-scoped fields every service logs.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey holds the request id set by the HTTP middleware.
	RequestIDKey contextKey = "request_id"
	// UserIDKey holds the authenticated user id.
	UserIDKey contextKey = "user_id"
)

// Logger is a slog.Logger with a few call-center specific helpers.
type Logger struct {
	*slog.Logger
}

// New returns a text logger at debug level in development and a JSON logger
// at info level everywhere else.
func New(env string) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// WithContext adds the request and user ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	out := l
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		out = out.WithRequestID(id)
	}
	if id, ok := ctx.Value(UserIDKey).(string); ok && id != "" {
		out = out.WithUserID(id)
	}
	return out
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.With(slog.String("request_id", requestID))}
}

func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{Logger: l.With(slog.String("user_id", userID))}
}

// StorageError records a failed repository call. attrs are key/value pairs
// such as "leadId", id.
func (l *Logger) StorageError(msg, op string, err error, attrs ...any) {
	l.Error(msg, append([]any{slog.String("op", op), slog.Any("error", err)}, attrs...)...)
}

// HTTPRequest logs one completed request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
