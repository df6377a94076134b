package kv

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"
)

// sweepInterval is the number of writes between lazy sweeps of expired entries.
const sweepInterval = 256

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is the process-local [Store] fallback used when no Redis
// client is configured. Atomicity is provided by a single mutex, which is
// acceptable because the store only serves single-instance deployments;
// state is not shared across processes.
//
// Expired entries are treated as absent on every read and swept
// opportunistically on writes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	writes  int
	closed  bool

	now func() time.Time // overridable in tests
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// live returns the entry for key if present and unexpired, deleting it
// otherwise. Callers must hold the mutex.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) sweepLocked() {
	s.writes++
	if s.writes%sweepInterval != 0 {
		return
	}

	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}

	s.sweepLocked()
	s.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrUnavailable
	}

	entry, ok := s.live(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnavailable
	}

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrUnavailable
	}

	entry, ok := s.live(key)
	if !ok {
		return 0, ErrKeyNotFound
	}
	return entry.expiresAt.Sub(s.now()), nil
}

func (s *MemoryStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrUnavailable
	}

	s.sweepLocked()

	entry, ok := s.live(key)
	if !ok {
		s.entries[key] = memoryEntry{
			value:     []byte("1"),
			expiresAt: s.now().Add(ttl),
		}
		return 1, nil
	}

	count, err := strconv.ParseInt(string(entry.value), 10, 64)
	if err != nil {
		count = 0
	}
	count++

	// Window deadline is fixed at first increment.
	entry.value = []byte(strconv.FormatInt(count, 10))
	s.entries[key] = entry
	return count, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, expect, next []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrUnavailable
	}

	entry, ok := s.live(key)
	if !ok {
		return false, ErrKeyNotFound
	}
	if !bytes.Equal(entry.value, expect) {
		return false, nil
	}

	entry.value = append([]byte(nil), next...)
	s.entries[key] = entry
	return true, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.closed = true
	return nil
}
