package marvapi

import (
	"context"
	"net/http"

	"github.com/marv/gateway/internal/domain/warranty"
)

// LoginResult is the backend's answer to a successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type credentials struct {
	Username string               `json:"username"`
	Password string               `json:"password"`
	Role     warranty.AccountRole `json:"role,omitempty"`
}

// Login authenticates and stores the returned access token in the TokenSource
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/accounts/login", nil, credentials{Username: username, Password: password}, &result); err != nil {
		return nil, err
	}
	if result.AccessToken != "" {
		if err := c.tokens.SetToken(ctx, result.AccessToken); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// Register creates an account. An empty role means viewer.
func (c *Client) Register(ctx context.Context, username, password string, role warranty.AccountRole) (*warranty.Account, error) {
	if role == "" {
		role = warranty.AccountRoleViewer
	}
	var account warranty.Account
	body := credentials{Username: username, Password: password, Role: role}
	if err := c.do(ctx, http.MethodPost, "/accounts/register", nil, body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Me returns the account behind the current token
func (c *Client) Me(ctx context.Context) (*warranty.Account, error) {
	var account warranty.Account
	if err := c.do(ctx, http.MethodGet, "/accounts/me", nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Logout ends the upstream session. The local token is cleared even when the call fails.
func (c *Client) Logout(ctx context.Context) error {
	_ = c.do(ctx, http.MethodGet, "/accounts/logout", nil, nil, nil)
	return c.tokens.ClearToken(ctx)
}

// ClearSessions revokes every session of the current account
func (c *Client) ClearSessions(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/accounts/clearsessions", nil, nil, nil)
}
