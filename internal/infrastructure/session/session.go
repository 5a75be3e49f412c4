// Package session keeps the upstream access token of each gateway session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marv/gateway/internal/infrastructure/cache"
)

var (
	// ErrNoSession is returned when a token must be stored but the context carries no session
	ErrNoSession = errors.New("session: no session in context")
	// ErrTokenExpired is returned when storing a token whose exp claim has passed
	ErrTokenExpired = errors.New("session: token already expired")
)

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The gateway never holds the backend's signing key; exp only bounds how
// long a token is kept.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// NewID returns a fresh session identifier
func NewID() string {
	return uuid.NewString()
}

// Store maps session IDs to upstream tokens
type Store struct {
	backend cache.Store
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a Store. Tokens live for ttl, or until their exp claim if sooner.
func NewStore(backend cache.Store, ttl time.Duration) *Store {
	return &Store{backend: backend, ttl: ttl, now: time.Now}
}

// Get returns the token of sessionID, or "" when there is none or it has expired
func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	val, ok, err := s.backend.Get(ctx, sessionID)
	if err != nil || !ok {
		return "", err
	}

	token := string(val)
	if exp, ok := TokenExpiry(token); ok && !s.now().Before(exp) {
		_ = s.backend.Delete(ctx, sessionID)
		return "", nil
	}
	return token, nil
}

// Set stores token under sessionID
func (s *Store) Set(ctx context.Context, sessionID, token string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	ttl := s.ttl
	if exp, ok := TokenExpiry(token); ok {
		remaining := exp.Sub(s.now())
		if remaining <= 0 {
			return ErrTokenExpired
		}
		if ttl <= 0 || remaining < ttl {
			ttl = remaining
		}
	}
	return s.backend.Set(ctx, sessionID, []byte(token), ttl)
}

// Delete forgets sessionID
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.backend.Delete(ctx, sessionID)
}

// Close releases the backing store
func (s *Store) Close() error {
	return s.backend.Close()
}

type contextKey struct{}

// WithID attaches a session ID to ctx
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKey{}, sessionID)
}

// IDFromContext returns the session ID in ctx, or ""
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// Provider hands the token of the session found in the request context to
// the upstream client.
type Provider struct {
	store *Store
}

// NewProvider creates a Provider over store
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) Token(ctx context.Context) (string, error) {
	return p.store.Get(ctx, IDFromContext(ctx))
}

func (p *Provider) SetToken(ctx context.Context, token string) error {
	return p.store.Set(ctx, IDFromContext(ctx), token)
}

func (p *Provider) ClearToken(ctx context.Context) error {
	return p.store.Delete(ctx, IDFromContext(ctx))
}
