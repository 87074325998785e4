// Package db defines the cache store contracts. Consumers depend on the
// narrow sub-interfaces; Store is the facade implementations satisfy.
package db

import (
	"context"
	"time"
)

// Store is the cache store facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds the key-value operations the embedding cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value at key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore holds the counter operations budget persistence needs.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	// ExpireOnce sets ttl on key only when it has no expiry yet, so
	// repeated increments within a period never push the deadline out.
	ExpireOnce(ctx context.Context, key string, ttl time.Duration) error
}
