package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/interfaces/http/dto"
)

// fixedClock lets a test move the limiter's notion of now
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time          { return c.now }
func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)}
	limiter := NewRateLimiter(limit, window)
	limiter.now = clock.Now
	t.Cleanup(limiter.Stop)
	return limiter, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		calls    int
		expected []bool
	}{
		{name: "within budget", limit: 3, calls: 3, expected: []bool{true, true, true}},
		{name: "over budget", limit: 2, calls: 4, expected: []bool{true, true, false, false}},
		{name: "single request budget", limit: 1, calls: 2, expected: []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, _ := newTestLimiter(t, tt.limit, time.Minute)
			got := make([]bool, 0, tt.calls)
			for range tt.calls {
				got = append(got, limiter.Allow("10.0.0.1"))
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRateLimiter_Window(t *testing.T) {
	limiter, clock := newTestLimiter(t, 2, time.Minute)

	assert.Equal(t, 2, limiter.Remaining("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.Equal(t, 1, limiter.Remaining("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "other clients keep their own budget")

	clock.Advance(59 * time.Second)
	assert.False(t, limiter.Allow("10.0.0.1"))

	clock.Advance(time.Second)
	assert.Equal(t, 2, limiter.Remaining("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.Equal(t, 1, limiter.Remaining("10.0.0.1"))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 40, time.Minute)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("10.0.0.1") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(40), allowed.Load())
	limiter.Stop()
	limiter.Stop()
}

func newLimitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	warranty := router.Group("/api/v1/warranty", RateLimit(limiter))
	warranty.GET("/:serial", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"serial": c.Param("serial")}))
	})
	router.POST("/api/v1/auth/login", AuthRateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serveFrom(router *gin.Engine, method, path, ip, requestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":41000"
	if requestID != "" {
		req.Header.Set(RequestIDKey, requestID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestRateLimit_WarrantyLookup(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, 30*time.Second)
	router := newLimitedRouter(limiter)

	w := serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0001", "192.0.2.10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0002", "192.0.2.10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0003", "192.0.2.10", "req-429")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeRateLimited, errInfo.Code)
	assert.Equal(t, "req-429", errInfo.RequestID)

	w = serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0003", "192.0.2.11", "")
	assert.Equal(t, http.StatusOK, w.Code, "a different client IP is not limited")
}

func TestAuthRateLimit(t *testing.T) {
	t.Run("login attempts are limited with their own code", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, time.Minute)
		router := newLimitedRouter(limiter)

		assert.Equal(t, http.StatusNoContent, serveFrom(router, http.MethodPost, "/api/v1/auth/login", "192.0.2.20", "").Code)

		w := serveFrom(router, http.MethodPost, "/api/v1/auth/login", "192.0.2.20", "req-login")
		require.Equal(t, http.StatusTooManyRequests, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeAuthRateLimited, errInfo.Code)
		assert.Contains(t, errInfo.Message, "login attempts")
		assert.Equal(t, "req-login", errInfo.RequestID)
	})

	t.Run("login and lookup budgets are separate on a shared limiter", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, time.Minute)
		router := newLimitedRouter(limiter)

		assert.Equal(t, http.StatusOK, serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0001", "192.0.2.30", "").Code)
		assert.Equal(t, http.StatusNoContent, serveFrom(router, http.MethodPost, "/api/v1/auth/login", "192.0.2.30", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, serveFrom(router, http.MethodGet, "/api/v1/warranty/SN0002", "192.0.2.30", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, serveFrom(router, http.MethodPost, "/api/v1/auth/login", "192.0.2.30", "").Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter, clock := newTestLimiter(t, 1, time.Minute)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Session())
	router.Use(RateLimitByKey(limiter, GetSessionID))
	router.GET("/api/v1/dashboard", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.Header.Set(SessionHeader, session)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	first := "7d1f1f0e-54a4-4c36-9f0e-0f6d2a6d6b11"
	second := "0b7c2d5e-3a0f-4a55-8d64-2f4fe1c3a9e2"
	assert.Equal(t, http.StatusOK, request(first))
	assert.Equal(t, http.StatusTooManyRequests, request(first))
	assert.Equal(t, http.StatusOK, request(second))

	clock.Advance(time.Minute)
	assert.Equal(t, http.StatusOK, request(first))
}
