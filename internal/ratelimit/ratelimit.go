package ratelimit

import (
	"sync"
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

// Limiter enforces a sliding-window request limit per client key: a request
// is allowed when fewer than limit requests were recorded within the last
// window. Allowed requests are recorded; denied requests are not.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	history map[string][]time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
	}
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Window() time.Duration { return l.window }

// Allow reports whether key may make a request now, recording it if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := globaltime.Now()
	recent := l.pruneLocked(key, now)
	if len(recent) >= l.limit {
		return false
	}

	l.history[key] = append(recent, now)
	return true
}

// RemainingFor returns how many requests key has left in the current window.
func (l *Limiter) RemainingFor(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.limit - len(l.pruneLocked(key, globaltime.Now()))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetTimeFor returns when key's oldest in-window request falls out of the
// window. The second return is false when nothing is recorded and the window
// is already clear.
func (l *Limiter) ResetTimeFor(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.pruneLocked(key, globaltime.Now())
	if len(recent) == 0 {
		return time.Time{}, false
	}
	return recent[0].Add(l.window), true
}

// Cleanup drops keys whose every recorded request has left the window and
// reports how many keys were removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := globaltime.Now()
	removed := 0
	for key := range l.history {
		if len(l.pruneLocked(key, now)) == 0 {
			delete(l.history, key)
			removed++
		}
	}
	return removed
}

// pruneLocked discards timestamps older than the window and returns the
// surviving, chronologically ordered slice. Caller holds l.mu.
func (l *Limiter) pruneLocked(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	recorded := l.history[key]

	kept := recorded[:0]
	for _, ts := range recorded {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.history, key)
		return nil
	}
	l.history[key] = kept
	return kept
}
