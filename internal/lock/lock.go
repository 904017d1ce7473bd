package lock

import (
	"context"
	"sync"
)

// Locker hands out named mutual-exclusion locks.
type Locker interface {
	// Acquire blocks until the named lock is held or ctx is done.
	// The returned function releases the lock; call it exactly once.
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// Local is an in-process Locker. Waiters on the same name are served in
// arrival order.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal returns an empty in-process Locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

var _ Locker = (*Local)(nil)

func (l *Local) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

func (l *Local) Acquire(ctx context.Context, name string) (func(), error) {
	ch := l.slot(name)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}
