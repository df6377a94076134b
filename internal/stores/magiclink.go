package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldday/authkit/kv"
)

var (
	ErrLinkNotFound = errors.New("magic link record not found")
	ErrLinkConsumed = errors.New("magic link already consumed")
)

// MagicLinkRecord is the payload bound to a link token. Consumed records
// stay in the store until their natural TTL so replays are distinguishable
// from expiry.
type MagicLinkRecord struct {
	Email       string `json:"email"`
	Consumed    bool   `json:"consumed"`
	RedirectURL string `json:"redirectUrl"`
}

// MagicLinkStore persists single-use link records keyed by token.
type MagicLinkStore struct {
	store kv.Store
	ttl   time.Duration
}

func NewMagicLinkStore(store kv.Store, ttl time.Duration) *MagicLinkStore {
	return &MagicLinkStore{store: store, ttl: ttl}
}

// Save stores a fresh record under the token.
func (s *MagicLinkStore) Save(ctx context.Context, token string, rec MagicLinkRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.store.Set(ctx, magicKey(token), data, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume flips the record to consumed with a single TTL-preserving
// compare-and-swap. Exactly one caller per token observes success; every
// later caller gets ErrLinkConsumed until the record expires.
func (s *MagicLinkStore) Consume(ctx context.Context, token string) (*MagicLinkRecord, error) {
	key := magicKey(token)

	for attempt := 0; attempt <= casRetries; attempt++ {
		data, err := s.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return nil, ErrLinkNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		var rec MagicLinkRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			_ = s.store.Delete(ctx, key)
			return nil, ErrLinkNotFound
		}

		if rec.Consumed {
			return nil, ErrLinkConsumed
		}

		next := rec
		next.Consumed = true

		nextData, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		swapped, err := s.store.CompareAndSwap(ctx, key, data, nextData)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return nil, ErrLinkNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if swapped {
			return &rec, nil
		}
		// A concurrent consumer won the swap; the re-read will see it.
	}

	return nil, ErrLinkConsumed
}

func magicKey(token string) string {
	return "magic:" + token
}
