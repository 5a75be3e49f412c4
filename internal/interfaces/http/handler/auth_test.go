package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/infrastructure/session"
	"github.com/marv/gateway/internal/interfaces/http/dto"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
)

func newAuthEngine(t *testing.T, upstream *fakeUpstream) (*gin.Engine, *session.Store) {
	client, store := newUpstreamClient(t, upstream)
	h := NewAuthHandler(client)
	engine := newEngine()
	engine.POST("/auth/login", h.Login)
	engine.GET("/auth/me", h.Me)
	engine.POST("/auth/logout", h.Logout)
	engine.DELETE("/auth/sessions", h.ClearSessions)
	return engine, store
}

func TestAuthHandler_LoginMeLogout(t *testing.T) {
	upstream := newFakeUpstream()
	engine, store := newAuthEngine(t, upstream)
	ctx := context.Background()

	var login LoginResponse
	w := performRequest(engine, http.MethodPost, "/auth/login", LoginRequest{Username: "admin", Password: "secret"}, nil)
	decode(t, w, &login)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sid := w.Header().Get(middleware.SessionHeader)
	assert.Equal(t, sid, login.SessionID)
	require.NotNil(t, login.Account)
	assert.Equal(t, "admin", login.Account.Username)
	assert.NotContains(t, w.Body.String(), upstream.token)

	token, err := store.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, upstream.token, token)

	headers := map[string]string{middleware.SessionHeader: sid}

	var account warranty.Account
	w = performRequest(engine, http.MethodGet, "/auth/me", nil, headers)
	decode(t, w, &account)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, warranty.AccountRoleAdmin, account.Role)

	w = performRequest(engine, http.MethodPost, "/auth/logout", nil, headers)
	assert.Equal(t, http.StatusNoContent, w.Code)

	token, err = store.Get(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, token)

	w = performRequest(engine, http.MethodGet, "/auth/me", nil, headers)
	resp := decode(t, w, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
}

func TestAuthHandler_LoginRejected(t *testing.T) {
	engine, _ := newAuthEngine(t, newFakeUpstream())

	w := performRequest(engine, http.MethodPost, "/auth/login", LoginRequest{Username: "admin", Password: "wrong"}, nil)
	resp := decode(t, w, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", resp.Error.Message)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	engine, _ := newAuthEngine(t, newFakeUpstream())

	w := performRequest(engine, http.MethodPost, "/auth/login", map[string]string{"username": "admin"}, nil)
	resp := decode(t, w, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestAuthHandler_ClearSessions(t *testing.T) {
	upstream := newFakeUpstream()
	engine, store := newAuthEngine(t, upstream)
	ctx := context.Background()

	sid := uuid.NewString()
	headers := map[string]string{middleware.SessionHeader: sid}

	w := performRequest(engine, http.MethodDelete, "/auth/sessions", nil, headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, upstream.sessionsCleared)

	require.NoError(t, store.Set(ctx, sid, upstream.token))
	w = performRequest(engine, http.MethodDelete, "/auth/sessions", nil, headers)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, upstream.sessionsCleared)

	token, err := store.Get(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, token)
}
