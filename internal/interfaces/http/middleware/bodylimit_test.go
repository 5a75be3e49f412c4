package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/interfaces/http/dto"
)

func newBodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/api/v1/serials/expand", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidInput, err.Error()))
			return
		}
		c.String(http.StatusOK, "%d", len(data))
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	t.Run("passes a body within the limit", func(t *testing.T) {
		router := newBodyLimitRouter(64)
		body := `{"start_serial":"SN01","end_serial":"SN09"}`

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/serials/expand", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "43", w.Body.String())
	})

	t.Run("declared oversize body gets the error envelope", func(t *testing.T) {
		router := newBodyLimitRouter(16)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/serials/expand", strings.NewReader(strings.Repeat("9", 32)))
		req.Header.Set(RequestIDKey, "req-413")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "req-413", resp.Error.RequestID)
		assert.Equal(t, http.StatusRequestEntityTooLarge, dto.GetHTTPStatus(resp.Error.Code))
	})

	t.Run("undeclared length is cut off while reading", func(t *testing.T) {
		router := newBodyLimitRouter(16)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/serials/expand", strings.NewReader(strings.Repeat("9", 32)))
		req.ContentLength = -1

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "request body too large")
	})
}
