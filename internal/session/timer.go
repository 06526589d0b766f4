package session

import (
	"sync"
	"time"
)

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealScheduler uses the runtime timer.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Token identifies one scheduling of a TimerSlot.
type Token uint64

// TimerSlot owns at most one live timer. Scheduling replaces and stops the
// previous timer, and every callback carries the token it was scheduled
// with, so a callback that lost a race against Schedule or Cancel can tell
// it is stale.
type TimerSlot struct {
	mu    sync.Mutex
	timer Timer
	token Token
}

// Schedule cancels any pending timer and arranges for fn to run after d.
func (s *TimerSlot) Schedule(sched Scheduler, d time.Duration, fn func(Token)) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.token++
	tok := s.token
	s.timer = sched.AfterFunc(d, func() { fn(tok) })
	return tok
}

// Cancel stops the pending timer, if any. Cancelling an idle or already
// fired slot is a no-op.
func (s *TimerSlot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.token++
}

// Fired claims the slot for a firing callback. It returns false when tok is
// stale, in which case the callback must do nothing.
func (s *TimerSlot) Fired(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.token || s.timer == nil {
		return false
	}
	s.timer = nil
	return true
}

// Pending reports whether a timer is scheduled and not yet claimed.
func (s *TimerSlot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *TimerSlot) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
