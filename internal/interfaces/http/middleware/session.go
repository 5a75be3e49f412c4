package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marv/gateway/internal/infrastructure/logger"
	"github.com/marv/gateway/internal/infrastructure/session"
)

// SessionHeader carries the gateway session a client acts under. The
// upstream token of that session never leaves the gateway.
const SessionHeader = "X-Session-ID"

const sessionContextKey = "session_id"

// Session attaches the caller's session ID to the request context so the
// upstream client can find its token. Callers without a valid ID get a new
// one, returned in the response header.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = session.NewID()
		}

		ctx := session.WithID(c.Request.Context(), id)
		ctx = logger.WithSessionID(ctx, id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionContextKey, id)
		c.Header(SessionHeader, id)

		c.Next()
	}
}

// GetSessionID returns the session ID set by Session
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
