package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent. Callers fall
// back to the primary store; the cache is never authoritative.
var ErrCacheMiss = errors.New("cache: miss")

// Cache stores JSON-encoded values with a TTL. Used only for
// read-by-id document lookups, never for the search read path.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Noop is a Cache that stores nothing. It stands in when no Redis
// address is configured and in tests.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest any) error { return ErrCacheMiss }

func (Noop) Set(ctx context.Context, key string, value any, ttl time.Duration) error { return nil }

func (Noop) Delete(ctx context.Context, key string) error { return nil }
