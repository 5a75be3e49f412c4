package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/infrastructure/logger"
	"github.com/marv/gateway/internal/infrastructure/session"
)

func TestSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromCtx, fromLogger, fromGin string
	router := gin.New()
	router.Use(Session())
	router.GET("/test", func(c *gin.Context) {
		fromCtx = session.IDFromContext(c.Request.Context())
		fromLogger = logger.GetSessionID(c.Request.Context())
		fromGin = GetSessionID(c)
		c.Status(http.StatusOK)
	})

	t.Run("issues a session when none is sent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(SessionHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, fromCtx)
		assert.Equal(t, id, fromLogger)
		assert.Equal(t, id, fromGin)
	})

	t.Run("keeps a valid session", func(t *testing.T) {
		existing := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(SessionHeader, existing)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, existing, w.Header().Get(SessionHeader))
		assert.Equal(t, existing, fromCtx)
	})

	t.Run("replaces a malformed session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(SessionHeader, "../../admin")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEqual(t, "../../admin", fromCtx)
		assert.Equal(t, w.Header().Get(SessionHeader), fromCtx)
	})
}
