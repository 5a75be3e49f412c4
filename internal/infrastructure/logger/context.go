package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	sessionIDKey contextKey = "session_id"
	usernameKey  contextKey = "username"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds the request ID to ctx and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithSessionID tags ctx with the upstream session it acts for
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithUsername tags ctx with the signed-in operator
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	s, _ := ctx.Value(sessionIDKey).(string)
	return s
}

// GetUsername retrieves the operator username from context
func GetUsername(ctx context.Context) string {
	s, _ := ctx.Value(usernameKey).(string)
	return s
}

// L returns the context logger enriched with the session and operator found
// in ctx. The request ID is already carried by the logger WithRequestID stored.
//
//	logger.L(ctx).Info("bulk run completed", zap.Int("total", n))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if id := GetSessionID(ctx); id != "" {
		l = l.With(zap.String("session_id", shortID(id)))
	}
	if name := GetUsername(ctx); name != "" {
		l = l.With(zap.String("username", name))
	}
	return l
}

// shortID keeps session identifiers out of logs in full
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

