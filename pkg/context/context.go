package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

// Keys stay plain strings so pkg/log can read them back.
const (
	RequestIDKey    = "request_id"
	ConnectionIDKey = "connection_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithConnectionID(ctx context.Context, connectionID string) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, connectionID)
}

func GetConnectionID(ctx context.Context) string {
	id, _ := ctx.Value(ConnectionIDKey).(string)
	return id
}

// FromFiberCtx derives a context carrying the request id that the request
// id middleware stored on c.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(c.UserContext(), requestID)
}
