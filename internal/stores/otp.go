// Package stores keeps short-lived verification records in the secret store.
// Records are JSON documents with per-key TTLs; all conditional updates go
// through compare-and-swap so concurrent verifiers cannot double-consume.
package stores

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldday/authkit/kv"
)

var (
	ErrCodeNotFound     = errors.New("otp record not found")
	ErrBlocked          = errors.New("identifier blocked")
	ErrAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrStoreUnavailable = errors.New("otp store unavailable")
)

// MismatchError reports a wrong code along with the attempts the caller has
// left before the identifier is blocked.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("otp code mismatch, %d attempts remaining", e.Remaining)
}

// casRetries bounds the consume retry loop under concurrent verification.
const casRetries = 2

// OTPConfig tunes code lifetime and the failure lockout.
type OTPConfig struct {
	CodeTTL     time.Duration
	BlockTTL    time.Duration
	MaxAttempts int
}

type otpRecord struct {
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

// OTPStore persists one pending code per identifier plus a separate block
// flag. Issuing a new code overwrites the previous one and resets its
// attempt count.
type OTPStore struct {
	store  kv.Store
	config OTPConfig
}

func NewOTPStore(store kv.Store, cfg OTPConfig) *OTPStore {
	return &OTPStore{store: store, config: cfg}
}

// Save stores a fresh code for the identifier, replacing any pending one.
func (s *OTPStore) Save(ctx context.Context, identifier, code string) error {
	data, err := json.Marshal(otpRecord{Code: code})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.store.Set(ctx, otpKey(identifier), data, s.config.CodeTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsBlocked reports whether the identifier is under a failure lockout.
func (s *OTPStore) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	_, err := s.store.Get(ctx, blockKey(identifier))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return true, nil
}

// Block sets the failure lockout flag for the identifier.
func (s *OTPStore) Block(ctx context.Context, identifier string) error {
	if err := s.store.Set(ctx, blockKey(identifier), []byte("1"), s.config.BlockTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume validates code against the pending record. On a match the record
// is deleted so the code is single-use. On a mismatch the attempt counter is
// advanced with a TTL-preserving compare-and-swap; crossing MaxAttempts sets
// the block flag and destroys the record.
func (s *OTPStore) Consume(ctx context.Context, identifier, code string) error {
	key := otpKey(identifier)

	for attempt := 0; attempt <= casRetries; attempt++ {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		var rec otpRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			// Unreadable record, destroy it rather than loop on it.
			_ = s.store.Delete(ctx, key)
			return ErrCodeNotFound
		}

		if rec.Attempts >= s.config.MaxAttempts {
			return s.lockOut(ctx, identifier, key)
		}

		if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
			if err := s.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			return nil
		}

		next := rec
		next.Attempts++

		if next.Attempts >= s.config.MaxAttempts {
			return s.lockOut(ctx, identifier, key)
		}

		nextData, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		swapped, err := s.store.CompareAndSwap(ctx, key, data, nextData)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if swapped {
			return &MismatchError{Remaining: s.config.MaxAttempts - next.Attempts}
		}
		// Lost the race to a concurrent verifier, re-read and retry.
	}

	return ErrCodeNotFound
}

func (s *OTPStore) lockOut(ctx context.Context, identifier, key string) error {
	if err := s.Block(ctx, identifier); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ErrAttemptsExceeded
}

func otpKey(identifier string) string {
	return "otp:" + identifier
}

func blockKey(identifier string) string {
	return "blocked:" + identifier
}
