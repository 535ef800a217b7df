// Package context carries request-scoped values between echo handlers,
// usecases and outbound calls.
package context

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	KeyRequestID ContextKey = "request_id"
	KeyLogger    ContextKey = "logger"
	// KeyClientID holds the browser client namespace resolved by the client scope middleware.
	KeyClientID ContextKey = "client_id"

	HeaderXRequestID = "X-Request-Id"
	HeaderXClientID  = "X-Client-Id"
)

func value[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)

	return v, ok
}

// GetRequestID returns the request id stored on the echo context, or a fresh
// one when the request id middleware did not run.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(string(KeyRequestID)).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

func SetRequestID(c echo.Context, requestID string) {
	c.Set(string(KeyRequestID), requestID)
}

// GetRequestIDFromContext returns "" when no request id is set.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := value[string](ctx, KeyRequestID)

	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// GetLoggerOrDefault returns the request-scoped logger, or fallback outside a request.
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := value[*slog.Logger](ctx, KeyLogger); ok && logger != nil {
		return logger
	}

	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}

func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, KeyClientID, clientID)
}

// GetClientID returns "" outside a client scope.
func GetClientID(ctx context.Context) string {
	id, _ := value[string](ctx, KeyClientID)

	return id
}
