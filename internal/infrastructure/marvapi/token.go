package marvapi

import (
	"context"
	"sync"
)

// StaticToken is a process-wide TokenSource, used by the CLI and tests
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

// NewStaticToken creates a StaticToken holding token
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *StaticToken) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *StaticToken) ClearToken(context.Context) error {
	return s.SetToken(context.Background(), "")
}
