// Package rate enforces fixed-window request budgets over the secret store.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldday/authkit/kv"
)

// Purpose names an independently budgeted operation class. Each purpose
// keeps its own counter per identifier.
type Purpose string

const (
	PurposeOTP   Purpose = "otp"
	PurposeMagic Purpose = "magic"
	PurposeLogin Purpose = "login"
)

var (
	// ErrRateLimited is returned when an identifier has exhausted its
	// window budget for a purpose.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps secret-store failures during a check.
	ErrStoreUnavailable = errors.New("rate limiter store unavailable")
)

// Quota is the budget for one purpose: at most Max requests per Window.
type Quota struct {
	Max    int
	Window time.Duration
}

// Result reports the outcome of a single check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter applies per-identifier fixed-window quotas. Counters live in the
// secret store under their own namespace, so limiter state shares the
// backend (and the TTL semantics) of the records it protects.
type Limiter struct {
	store  kv.Store
	quotas map[Purpose]Quota
}

// New creates a limiter with the given per-purpose quotas. Purposes not
// present in quotas are unlimited.
func New(store kv.Store, quotas map[Purpose]Quota) *Limiter {
	return &Limiter{store: store, quotas: quotas}
}

// Check consumes one unit of the identifier's budget for the purpose.
// The count increments even when the request is denied; the window deadline
// is fixed at the first hit and is never extended by later traffic.
func (l *Limiter) Check(ctx context.Context, purpose Purpose, identifier string) (Result, error) {
	quota, ok := l.quotas[purpose]
	if !ok || quota.Max <= 0 {
		return Result{Allowed: true, Remaining: -1}, nil
	}

	key := counterKey(purpose, identifier)

	count, err := l.store.IncrWithTTL(ctx, key, quota.Window)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resetAt := time.Now().Add(quota.Window)
	if ttl, err := l.store.TTL(ctx, key); err == nil {
		resetAt = time.Now().Add(ttl)
	}

	remaining := quota.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(quota.Max),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the identifier's counter for the purpose. Administrative;
// normal operation relies on window expiry alone.
func (l *Limiter) Reset(ctx context.Context, purpose Purpose, identifier string) error {
	if err := l.store.Delete(ctx, counterKey(purpose, identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// counterKey namespaces limiter counters away from secret records so an
// identifier's OTP key and its rate counter never collide.
func counterKey(purpose Purpose, identifier string) string {
	return "rl:" + string(purpose) + ":" + identifier
}
