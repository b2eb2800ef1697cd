package auth

import (
	"sync"
	"time"
)

// Lockout throttles repeated failed logins per username. Counters reset on
// success or when the window lapses.
type Lockout struct {
	mu       sync.Mutex
	failures map[string]*failureState
	max      int
	window   time.Duration
}

type failureState struct {
	count int
	first time.Time
}

// NewLockout allows max failures per window before locking a username out.
func NewLockout(max int, window time.Duration) *Lockout {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Lockout{
		failures: make(map[string]*failureState),
		max:      max,
		window:   window,
	}
}

// Locked reports whether the username is currently locked out.
func (l *Lockout) Locked(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.failures[username]
	if !ok {
		return false
	}
	if time.Since(state.first) > l.window {
		delete(l.failures, username)
		return false
	}
	return state.count >= l.max
}

// RecordFailure counts one failed attempt.
func (l *Lockout) RecordFailure(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.failures[username]
	if !ok || time.Since(state.first) > l.window {
		l.failures[username] = &failureState{count: 1, first: time.Now()}
		return
	}
	state.count++
}

// Clear resets the counter after a successful login.
func (l *Lockout) Clear(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, username)
}
