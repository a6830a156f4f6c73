package cache

import "sync"

// KeyLock serializes state-changing operations per key: while one caller
// holds the lock for a key, other callers for the same key block until it
// is released. Callers for different keys never contend. Lock entries are
// created on demand and removed once no caller holds or awaits them, so
// the table does not grow with the key space.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates an empty lock table.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLock)}
}

// Lock acquires the lock for key, blocking until it is available.
func (l *KeyLock) Lock(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
}

// Unlock releases the lock for key. It panics if the key is not locked,
// mirroring sync.Mutex.
func (l *KeyLock) Unlock(key string) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		l.mu.Unlock()
		panic("cache: unlock of unlocked key " + key)
	}
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	kl.mu.Unlock()
}

// Do runs fn while holding the lock for key and returns fn's error.
func (l *KeyLock) Do(key string, fn func() error) error {
	l.Lock(key)
	defer l.Unlock(key)
	return fn()
}

// pending returns the number of live lock entries. Test hook.
func (l *KeyLock) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
