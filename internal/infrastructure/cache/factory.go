package cache

import (
	"fmt"

	"github.com/marv/gateway/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory creates stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption configures the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// an in-memory store. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to Redis and returns a store owning the connection
func (f *StoreFactory) CreateRedisStore(keyPrefix string) (*RedisStore, error) {
	client, err := NewRedisClient(f.redisConfig)
	if err != nil {
		return nil, err
	}
	store := NewRedisStore(client, keyPrefix)
	store.ownClient = true
	return store, nil
}

// CreateStore returns a Redis store when requested and reachable. With
// useRedis false, or Redis down and fallback allowed, it returns an
// in-memory store.
func (f *StoreFactory) CreateStore(useRedis bool, keyPrefix string) (Store, error) {
	if !useRedis {
		return NewInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore(keyPrefix)
	if err == nil {
		f.logger.Info("using Redis store", zap.String("prefix", keyPrefix))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory store. "+
		"State will not be shared between gateway instances.",
		zap.String("prefix", keyPrefix),
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}
