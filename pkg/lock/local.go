package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is a keyed mutex for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
	wait  time.Duration
}

type localSlot struct {
	held chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot), wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &localSlot{held: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	t := time.NewTimer(l.wait)
	defer t.Stop()

	select {
	case s.held <- struct{}{}:
	case <-t.C:
		l.release(key, s)
		return nil, ErrBusy
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.held
			l.release(key, s)
		})
	}, nil
}

func (l *LocalLocker) release(key string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
