package checkout

import "sync"

// sessionLocks hands out one mutex per session id. The store contract does
// not make read-then-write atomic, so every Service mutation runs inside the
// session's critical section. Locks are never reclaimed; the session space of
// a single deployment is small enough that this does not matter.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the session's mutex and returns the unlock func.
func (l *sessionLocks) acquire(id string) func() {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
