// Package cache provides short-lived key/value storage backed by Redis or,
// for single-instance deployments, process memory.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store. A ttl of zero means no expiry.
type Store interface {
	// Get returns the value and whether the key was present and unexpired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
