package ledger

import "sync"

// keyLock serializes work per claimKey. Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type keyLock struct {
	mu      sync.Mutex
	pending map[claimKey]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{pending: make(map[claimKey]*keyEntry)}
}

// Lock blocks until key is free and returns its release func.
func (l *keyLock) Lock(key claimKey) func() {
	l.mu.Lock()
	e, ok := l.pending[key]
	if !ok {
		e = &keyEntry{}
		l.pending[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.pending, key)
		}
		l.mu.Unlock()
	}
}

// size returns the number of live entries.
func (l *keyLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
