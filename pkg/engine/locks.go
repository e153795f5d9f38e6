package engine

import (
	"context"
	"sync"
)

// userLocks serializes passes per user. Waiting honours context cancellation.
type userLocks struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{slots: make(map[string]*slot)}
}

// acquire blocks until userID is free or ctx is done.
func (l *userLocks) acquire(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[userID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[userID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			l.done(userID, s)
		}, nil
	case <-ctx.Done():
		l.done(userID, s)
		return nil, ctx.Err()
	}
}

func (l *userLocks) done(userID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, userID)
	}
}
