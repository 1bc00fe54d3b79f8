// ABOUTME: Resettable single-shot inactivity deadline owned by the Manager
// ABOUTME: Stale firings from an earlier arm are ignored so each deadline fires at most once

package conversation

import (
	"sync"
	"time"
)

// DefaultSessionTimeout is how long a conversation may sit idle before it
// is archived and replaced
const DefaultSessionTimeout = 30 * time.Minute

// InactivityTimer runs fn once the timeout elapses without a Reset.
// fn runs on its own goroutine.
type InactivityTimer struct {
	mu       sync.Mutex
	timeout  time.Duration
	fn       func()
	timer    *time.Timer
	seq      uint64
	deadline time.Time
}

// NewInactivityTimer creates a disarmed timer. Call Reset to arm it.
func NewInactivityTimer(timeout time.Duration, fn func()) *InactivityTimer {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &InactivityTimer{
		timeout: timeout,
		fn:      fn,
	}
}

// Reset re-arms the deadline to now plus the timeout, cancelling any
// pending deadline.
func (t *InactivityTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	t.deadline = time.Now().Add(t.timeout)
	t.timer = time.AfterFunc(t.timeout, func() { t.fire(seq) })
}

// Stop cancels the pending deadline, if any.
func (t *InactivityTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	// Invalidate a firing that already started
	t.seq++
	t.deadline = time.Time{}
}

// Deadline returns the armed deadline and whether the timer is armed.
func (t *InactivityTimer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, !t.deadline.IsZero()
}

// Timeout returns the configured idle duration.
func (t *InactivityTimer) Timeout() time.Duration {
	return t.timeout
}

func (t *InactivityTimer) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.deadline = time.Time{}
	t.mu.Unlock()

	t.fn()
}
