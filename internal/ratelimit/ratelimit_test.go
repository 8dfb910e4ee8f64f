package ratelimit

import (
	"testing"
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

func TestAllowUpToLimit(t *testing.T) {
	defer globaltime.ResetTime()
	globaltime.SetMockTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	l := New(10, time.Minute)
	for i := 0; i < 10; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("request %d should have been allowed", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Fatalf("request 11 should have been denied")
	}
	if !l.Allow("client-b") {
		t.Fatalf("a different client must not share the window")
	}
}

func TestDeniedRequestsAreNotRecorded(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)

	l := New(2, time.Minute)
	l.Allow("k")
	l.Allow("k")
	for i := 0; i < 5; i++ {
		l.Allow("k")
	}

	// Once the two recorded requests age out, the client is clear again;
	// the denied attempts must not have extended the window.
	globaltime.SetMockTime(start.Add(61 * time.Second))
	if !l.Allow("k") {
		t.Fatalf("expected request after window to be allowed")
	}
}

func TestWindowSlides(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	l := New(2, time.Minute)
	globaltime.SetMockTime(start)
	l.Allow("k")
	globaltime.SetMockTime(start.Add(30 * time.Second))
	l.Allow("k")

	if l.Allow("k") {
		t.Fatalf("third request inside the window should be denied")
	}

	// First request leaves the window; one slot frees up.
	globaltime.SetMockTime(start.Add(61 * time.Second))
	if !l.Allow("k") {
		t.Fatalf("request should be allowed after the oldest entry aged out")
	}
	if l.Allow("k") {
		t.Fatalf("window should be full again")
	}
}

func TestRemainingFor(t *testing.T) {
	defer globaltime.ResetTime()
	globaltime.SetMockTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	l := New(3, time.Minute)
	if got := l.RemainingFor("k"); got != 3 {
		t.Fatalf("fresh client should have full budget, got %d", got)
	}
	l.Allow("k")
	l.Allow("k")
	if got := l.RemainingFor("k"); got != 1 {
		t.Fatalf("expected 1 remaining, got %d", got)
	}
}

func TestResetTimeFor(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)

	l := New(3, time.Minute)
	if _, ok := l.ResetTimeFor("k"); ok {
		t.Fatalf("idle client has no pending reset")
	}

	l.Allow("k")
	globaltime.SetMockTime(start.Add(10 * time.Second))
	l.Allow("k")

	want := start.Add(time.Minute)
	got, ok := l.ResetTimeFor("k")
	if !ok || !got.Equal(want) {
		t.Fatalf("reset time should track the oldest request: got %v (ok=%v) want %v", got, ok, want)
	}

	// Once every recorded request ages out, the window reports clear again.
	globaltime.SetMockTime(start.Add(2 * time.Minute))
	if _, ok := l.ResetTimeFor("k"); ok {
		t.Fatalf("aged-out window has no pending reset")
	}
}

func TestCleanup(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)

	l := New(3, time.Minute)
	l.Allow("stale")
	globaltime.SetMockTime(start.Add(50 * time.Second))
	l.Allow("active")

	globaltime.SetMockTime(start.Add(70 * time.Second))
	if removed := l.Cleanup(); removed != 1 {
		t.Fatalf("expected 1 stale key removed, got %d", removed)
	}
	if got := l.RemainingFor("active"); got != 2 {
		t.Fatalf("active key should keep its history, got remaining %d", got)
	}
}
