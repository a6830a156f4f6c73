// Package cache provides the process-local caching layer: an expiring
// key/value store, a per-key write serializer, and a cache-aside accessor
// that fronts the database and model read paths.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned by SetEx when the TTL is zero or negative.
// An entry that should never expire is written with Set instead.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// entry holds a cached value with its absolute expiration deadline.
// A zero expiresAt means the entry never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a thread-safe in-memory key/value store with optional
// per-entry expiration. Expired entries are evicted lazily by the Get
// that discovers them; there is no background sweep and no I/O.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	// now is swapped in tests to control expiration.
	now func() time.Time
}

// NewStore creates an empty Store using the wall clock.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Set inserts or replaces the entry for key with no expiration.
// The entry lives until Del or FlushAll.
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	s.entries[key] = entry{value: value}
	s.mu.Unlock()
}

// SetEx inserts or replaces the entry for key, expiring ttl from now.
// The TTL must be positive; zero is rejected rather than treated as
// "no expiration".
func (s *Store) SetEx(key string, ttl time.Duration, value []byte) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Get returns the value for key if present and unexpired. An entry whose
// deadline has passed is deleted as a side effect of the read.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expiresAt.IsZero() || s.now().Before(e.expiresAt) {
		return e.value, true
	}

	// Expired. Re-check under the write lock so a concurrent Set that
	// replaced the entry in the meantime is not thrown away.
	s.mu.Lock()
	if cur, ok := s.entries[key]; ok && !cur.expiresAt.IsZero() && !s.now().Before(cur.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false
}

// Del removes key and reports how many entries were removed (0 or 1).
func (s *Store) Del(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return 0
	}
	delete(s.entries, key)
	return 1
}

// FlushAll empties the store unconditionally. Used for full resets only,
// never on the hot path.
func (s *Store) FlushAll() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len returns the number of entries, including ones that have expired
// but not yet been evicted by a read.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
