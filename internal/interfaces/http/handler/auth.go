package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marv/gateway/internal/domain/warranty"
	"github.com/marv/gateway/internal/infrastructure/logger"
	"github.com/marv/gateway/internal/infrastructure/marvapi"
	"github.com/marv/gateway/internal/infrastructure/session"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
)

// AuthBackend is the part of the upstream client the auth endpoints use
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*marvapi.LoginResult, error)
	Me(ctx context.Context) (*warranty.Account, error)
	Logout(ctx context.Context) error
	ClearSessions(ctx context.Context) error
}

// AuthHandler proxies authentication to the warranty backend. The backend's
// access token is kept in the session store and never returned to the caller.
type AuthHandler struct {
	BaseHandler
	backend AuthBackend
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(backend AuthBackend) *AuthHandler {
	return &AuthHandler{backend: backend}
}

// LoginRequest holds dashboard credentials
// @Description Login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=150" example:"admin"`
	Password string `json:"password" binding:"required,max=128" example:"secret"`
}

// LoginResponse identifies the session the token was stored under
// @Description Login result
type LoginResponse struct {
	SessionID string            `json:"session_id"`
	ExpiresAt *int64            `json:"expires_at,omitempty"`
	Account   *warranty.Account `json:"account,omitempty"`
}

// Login godoc
// @Summary      Sign in
// @Description  Authenticate against the warranty backend and bind its token to the caller's session.
// @Description  Send the returned session ID as X-Session-ID on later requests.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := h.backend.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := LoginResponse{SessionID: middleware.GetSessionID(c)}
	if exp, ok := session.TokenExpiry(result.AccessToken); ok {
		unix := exp.Unix()
		resp.ExpiresAt = &unix
	}

	ctx = logger.WithUsername(ctx, req.Username)
	if account, err := h.backend.Me(ctx); err == nil {
		resp.Account = account
	} else {
		logger.L(ctx).Warn("Signed in but account lookup failed", zap.Error(err))
	}
	logger.L(ctx).Info("Signed in")

	h.Success(c, resp)
}

// Me godoc
// @Summary      Current account
// @Description  The backend account bound to the caller's session
// @Tags         auth
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Success      200 {object} dto.Response{data=warranty.Account}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.backend.Me(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Logout godoc
// @Summary      Sign out
// @Description  End the backend session and forget its token. Always succeeds.
// @Tags         auth
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.backend.Logout(c.Request.Context()); err != nil {
		logger.L(c.Request.Context()).Warn("Failed to clear session token", zap.Error(err))
	}
	h.NoContent(c)
}

// ClearSessions godoc
// @Summary      Sign out everywhere
// @Description  Revoke every backend session of the signed-in account, then sign out here
// @Tags         auth
// @Produce      json
// @Param        X-Session-ID header string true "Gateway session"
// @Success      204
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/sessions [delete]
func (h *AuthHandler) ClearSessions(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.backend.ClearSessions(ctx); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.backend.Logout(ctx); err != nil {
		logger.L(ctx).Warn("Failed to clear session token", zap.Error(err))
	}
	logger.L(ctx).Info("Cleared all backend sessions")
	h.NoContent(c)
}
