// Package ratelimit enforces per-user request quotas with sliding windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Status reports a user's current quota usage.
type Status struct {
	MinuteUsed     int           `json:"minuteUsed"`
	MinuteLimit    int           `json:"minuteLimit"`
	HourUsed       int           `json:"hourUsed"`
	HourLimit      int           `json:"hourLimit"`
	RetryAfter     time.Duration `json:"-"`
	RetryAfterSecs int64         `json:"retryAfterSeconds,omitempty"`
}

// Limiter tracks request timestamps per user and enforces both a
// per-minute and a per-hour cap over sliding windows. Every user gets
// independent quota; unknown users are admitted and start tracking.
type Limiter struct {
	mu         sync.Mutex
	users      map[string]*window
	perMinute  int
	perHour    int
	maxTracked int              // cap on tracked users to bound memory
	now        func() time.Time // for testing
}

type window struct {
	stamps   []time.Time // ascending, pruned to the last hour
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing perMinute requests per rolling
// minute and perHour per rolling hour.
func NewLimiter(perMinute, perHour int) *Limiter {
	return &Limiter{
		users:      make(map[string]*window),
		perMinute:  perMinute,
		perHour:    perHour,
		maxTracked: 100000,
		now:        time.Now,
	}
}

// Allow records and admits a request for userID unless either window is
// exhausted. Denied requests are not recorded against the quota.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.users[userID]
	if !ok {
		if len(l.users) >= l.maxTracked {
			return false
		}
		w = &window{}
		l.users[userID] = w
	}
	w.prune(now)
	w.lastSeen = now

	if len(w.stamps) >= l.perHour {
		return false
	}
	if w.countSince(now.Add(-time.Minute)) >= l.perMinute {
		return false
	}

	w.stamps = append(w.stamps, now)
	return true
}

// Status reports usage without consuming quota. RetryAfter is non-zero
// only when the user is currently over a limit.
func (l *Limiter) Status(userID string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Status{MinuteLimit: l.perMinute, HourLimit: l.perHour}
	w, ok := l.users[userID]
	if !ok {
		return st
	}
	now := l.now()
	w.prune(now)
	st.HourUsed = len(w.stamps)
	st.MinuteUsed = w.countSince(now.Add(-time.Minute))

	if st.HourUsed >= l.perHour && len(w.stamps) > 0 {
		st.RetryAfter = w.stamps[0].Add(time.Hour).Sub(now)
	} else if st.MinuteUsed >= l.perMinute {
		idx := len(w.stamps) - st.MinuteUsed
		st.RetryAfter = w.stamps[idx].Add(time.Minute).Sub(now)
	}
	if st.RetryAfter > 0 {
		st.RetryAfterSecs = int64(st.RetryAfter.Seconds()) + 1
	}
	return st
}

// prune drops timestamps older than one hour.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// countSince counts timestamps strictly after t. Stamps are ascending,
// so scan from the tail.
func (w *window) countSince(t time.Time) int {
	n := 0
	for i := len(w.stamps) - 1; i >= 0; i-- {
		if !w.stamps[i].After(t) {
			break
		}
		n++
	}
	return n
}

// StartCleanup spawns a goroutine that evicts users idle longer than
// maxIdle every interval. Returns a cancel function that stops it.
func (l *Limiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

func (l *Limiter) cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-maxIdle)
	for id, w := range l.users {
		if w.lastSeen.Before(cutoff) {
			delete(l.users, id)
		}
	}
}

// Len returns the number of tracked users (for metrics and testing).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
