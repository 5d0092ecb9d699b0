package lock

import (
	"context"
	"sync"
	"time"
)

// Keyed hands out exclusive locks per string key so that mutations on the
// same (faculty, date) slot serialize while disjoint slots never block each
// other. Acquire waits up to the given timeout; callers translate a timeout
// into the retryable Busy outcome.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyed constructs an empty lock table.
func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]*slot)}
}

// Acquire obtains the lock for key, waiting up to timeout. On success the
// returned release function must be called exactly once. ok is false when the
// wait timed out or ctx was cancelled first.
func (k *Keyed) Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), ok bool) {
	k.mu.Lock()
	s, exists := k.slots[key]
	if !exists {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return func() { k.release(key, s) }, true
	case <-timer.C:
	case <-ctx.Done():
	}

	k.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
	k.mu.Unlock()
	return nil, false
}

func (k *Keyed) release(key string, s *slot) {
	<-s.ch

	k.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
	k.mu.Unlock()
}
