package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when a key is absent or past its TTL.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnavailable indicates the backing store is unreachable or closed.
	ErrUnavailable = errors.New("secret store unavailable")
)

// Store is the ephemeral secret store consumed by the authentication core.
// It holds OTP codes, magic-link records, attempt counters, and block flags.
// All operations are atomic per key; no cross-key transactions are offered.
//
// Two implementations ship with the package: [RedisStore] for shared
// deployments and [MemoryStore] as a process-local fallback with identical
// observable semantics (absent-after-TTL).
type Store interface {
	// Set writes value under key with the given TTL, replacing any
	// previous value and TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the current value, or ErrKeyNotFound when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// TTL reports the remaining lifetime of key, or ErrKeyNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// IncrWithTTL atomically increments the integer counter at key and
	// returns the new count. The TTL is applied only when the increment
	// creates the key, giving fixed-window semantics.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// CompareAndSwap replaces the value at key with next only when the
	// current value equals expect, preserving the remaining TTL. It
	// returns false when the current value differs, and ErrKeyNotFound
	// when the key is absent or expired.
	CompareAndSwap(ctx context.Context, key string, expect, next []byte) (bool, error)

	// Close releases resources held by the store.
	Close() error
}
