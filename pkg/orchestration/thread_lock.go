package orchestration

import "sync"

// threadLocks serializes turns per thread. Entries are dropped once no turn
// holds or waits for them.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// lock blocks until the thread is free and returns its unlock func
func (l *threadLocks) lock(key string) func() {
	l.mu.Lock()
	tl, ok := l.locks[key]
	if !ok {
		tl = &threadLock{}
		l.locks[key] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()
	return func() {
		tl.mu.Unlock()

		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *threadLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
