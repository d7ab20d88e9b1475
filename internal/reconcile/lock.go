package reconcile

import "sync"

type lockKey struct {
	kind  Kind
	login uint64
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedLock serializes work per key and frees entries nobody waits on.
type keyedLock struct {
	mu      sync.Mutex
	entries map[lockKey]*lockEntry
}

func newKeyedLock() *keyedLock {
	return &keyedLock{entries: make(map[lockKey]*lockEntry)}
}

func (l *keyedLock) lock(k lockKey) func() {
	l.mu.Lock()
	e, ok := l.entries[k]
	if !ok {
		e = &lockEntry{}
		l.entries[k] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, k)
		}
		l.mu.Unlock()
	}
}
