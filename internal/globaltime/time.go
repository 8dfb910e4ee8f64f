// Package globaltime is the clock every time-sensitive component reads.
// Tests freeze it with SetMockTime so cache expiry, rate-limit windows, and
// freshness checks are deterministic.
package globaltime

import (
	"sync"
	"time"
)

type clock struct {
	mu sync.RWMutex
	fn func() time.Time
}

var active = &clock{fn: time.Now}

func (c *clock) now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fn()
}

func (c *clock) set(fn func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
}

// Now returns the current time from the active clock.
func Now() time.Time {
	return active.now()
}

// UTC returns the current time in UTC.
func UTC() time.Time {
	return Now().UTC()
}

// Since returns the elapsed time measured against the active clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// SetMockTime freezes the clock at t. Tests must pair it with ResetTime.
func SetMockTime(t time.Time) {
	active.set(func() time.Time { return t })
}

// ResetTime restores the wall clock.
func ResetTime() {
	active.set(time.Now)
}
