package cache

import (
	"context"
	"time"
)

// Accessor implements cache-aside reads over a Store. Concurrent misses
// for the same key collapse into a single recompute; hits never take a
// lock beyond the Store's own map access.
type Accessor struct {
	store *Store
	locks *KeyLock
}

// NewAccessor creates an Accessor over store, serializing recomputes
// through locks. The KeyLock may be shared with write paths so that a
// recompute for a key cannot interleave with a write to the same key.
func NewAccessor(store *Store, locks *KeyLock) *Accessor {
	return &Accessor{store: store, locks: locks}
}

// GetOrCompute returns the cached value for key if fresh. On a miss it
// acquires the per-key lock, re-checks the store (another caller may have
// populated it while this one waited), and only then invokes compute and
// caches the result with ttl. A compute failure is returned uncached.
func (a *Accessor) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if v, ok := a.store.Get(key); ok {
		return v, nil
	}

	var value []byte
	err := a.locks.Do(key, func() error {
		if v, ok := a.store.Get(key); ok {
			value = v
			return nil
		}
		v, err := compute(ctx)
		if err != nil {
			return err
		}
		if err := a.store.SetEx(key, ttl, v); err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Invalidate deletes the given keys from the store. Callers invoke it
// synchronously after the backing write commits and before reporting
// success, so a subsequent read cannot hit an entry older than that
// write.
func (a *Accessor) Invalidate(keys ...string) {
	for _, key := range keys {
		a.store.Del(key)
	}
}
