// Package lock provides in-process per-account locking. A handler holds an
// account's lock for the duration of one balance-moving command so that a
// user cannot race their own validation against their own debit.
package lock

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the timeout period.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// UserLock hands out one binary semaphore per account ID. A slot lives only
// while someone holds or waits for it.
type UserLock struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	sem  chan struct{}
	refs int // holders plus waiters
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{slots: make(map[int64]*slot)}
}

// acquire registers interest in id's slot, creating it if needed.
func (ul *UserLock) acquire(id int64) *slot {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[id]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		ul.slots[id] = s
	}
	s.refs++
	return s
}

// releaseLocked drops interest in id's slot. ul.mu must be held.
func (ul *UserLock) releaseLocked(id int64, s *slot) {
	s.refs--
	if s.refs == 0 {
		delete(ul.slots, id)
	}
}

func (ul *UserLock) release(id int64, s *slot) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.releaseLocked(id, s)
}

// Lock blocks until the account's lock is held.
func (ul *UserLock) Lock(id int64) {
	ul.acquire(id).sem <- struct{}{}
}

// Unlock releases the account's lock. Unlocking a free lock is a no-op.
func (ul *UserLock) Unlock(id int64) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	s, ok := ul.slots[id]
	if !ok {
		return
	}
	select {
	case <-s.sem:
		ul.releaseLocked(id, s)
	default:
	}
}

// TryLock acquires the lock without blocking.
func (ul *UserLock) TryLock(id int64) bool {
	s := ul.acquire(id)
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		ul.release(id, s)
		return false
	}
}

// LockWithTimeout waits up to timeout (or until ctx is done) for the lock.
func (ul *UserLock) LockWithTimeout(ctx context.Context, id int64, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s := ul.acquire(id)
	select {
	case s.sem <- struct{}{}:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}
	ul.release(id, s)
	return false
}

// WithLockContext runs fn while holding the locks of every given account.
// Locks are taken in ascending ID order so two commands touching the same
// pair of accounts cannot deadlock.
func (ul *UserLock) WithLockContext(ctx context.Context, timeout time.Duration, fn func() error, ids ...int64) error {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]int64, 0, len(ordered))
	defer func() {
		for _, id := range held {
			ul.Unlock(id)
		}
	}()

	for _, id := range ordered {
		if !ul.LockWithTimeout(ctx, id, timeout) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrLockTimeout
		}
		held = append(held, id)
	}

	return fn()
}

// IsLocked is a point-in-time check and may change immediately after.
func (ul *UserLock) IsLocked(id int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	s, ok := ul.slots[id]
	return ok && len(s.sem) == 1
}

func (ul *UserLock) size() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.slots)
}
