package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/marv/gateway/internal/infrastructure/cache"
	"github.com/marv/gateway/internal/infrastructure/marvapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func newStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	backend := cache.NewInMemoryStore()
	t.Cleanup(func() { _ = backend.Close() })
	return NewStore(backend, ttl)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	assert.False(t, ok)
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("opaque tokens use the configured ttl", func(t *testing.T) {
		s := newStore(t, time.Hour)
		require.NoError(t, s.Set(ctx, "sid", "opaque"))
		tok, err := s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, "opaque", tok)

		require.NoError(t, s.Delete(ctx, "sid"))
		tok, err = s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("expired jwt is rejected", func(t *testing.T) {
		s := newStore(t, time.Hour)
		err := s.Set(ctx, "sid", signedToken(t, time.Now().Add(-time.Minute)))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("jwt that expires after being stored is dropped", func(t *testing.T) {
		s := newStore(t, time.Hour)
		token := signedToken(t, time.Now().Add(30*time.Minute))
		require.NoError(t, s.Set(ctx, "sid", token))

		got, err := s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Equal(t, token, got)

		s.now = func() time.Time { return time.Now().Add(time.Hour) }
		got, err = s.Get(ctx, "sid")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty session id", func(t *testing.T) {
		s := newStore(t, time.Hour)
		assert.ErrorIs(t, s.Set(ctx, "", "x"), ErrNoSession)
		tok, err := s.Get(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, tok)
		assert.NoError(t, s.Delete(ctx, ""))
	})
}

func TestProvider(t *testing.T) {
	var _ marvapi.TokenSource = (*Provider)(nil)

	s := newStore(t, time.Hour)
	p := NewProvider(s)

	id := NewID()
	assert.Len(t, id, 36)

	ctx := WithID(context.Background(), id)
	assert.Equal(t, id, IDFromContext(ctx))

	require.NoError(t, p.SetToken(ctx, "tok"))
	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	// other sessions see nothing
	tok, err = p.Token(WithID(context.Background(), NewID()))
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, p.ClearToken(ctx))
	tok, _ = p.Token(ctx)
	assert.Empty(t, tok)

	assert.ErrorIs(t, p.SetToken(context.Background(), "tok"), ErrNoSession)
}
