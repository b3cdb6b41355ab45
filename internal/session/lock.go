package session

import (
	"context"
	"sync"
)

// turnLock is a context-aware mutex built on a buffered channel. refs counts
// the holder plus every waiter and is guarded by Locker.mu.
type turnLock struct {
	sem  chan struct{}
	refs int
}

// Locker serializes turns per session id so that a turn cannot read history
// while another turn of the same session is still writing it. Entries are
// dropped once no turn holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

func (l *Locker) acquire(id string) *turnLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*turnLock)
	}
	tl, ok := l.locks[id]
	if !ok {
		tl = &turnLock{sem: make(chan struct{}, 1)}
		l.locks[id] = tl
	}
	tl.refs++
	return tl
}

func (l *Locker) release(id string, tl *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, id)
	}
}

// Lock blocks until the session's lock is held or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	tl := l.acquire(id)
	select {
	case tl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, tl)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-tl.sem
			l.release(id, tl)
		})
	}, nil
}

// Len reports how many session ids currently have a lock entry.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
