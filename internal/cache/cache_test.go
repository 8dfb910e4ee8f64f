package cache

import (
	"testing"
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

func TestGetSetRoundTrip(t *testing.T) {
	defer globaltime.ResetTime()
	globaltime.SetMockTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	c := New(10, 5*time.Minute)
	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("unexpected cached value: %v (found=%v)", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)

	c := New(10, 5*time.Minute)
	c.Set("k", 42)

	globaltime.SetMockTime(start.Add(5 * time.Minute))
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("entry at exactly ttl should still be served")
	}

	globaltime.SetMockTime(start.Add(5*time.Minute + time.Second))
	if _, ok := c.Get("k"); ok {
		t.Fatalf("entry past ttl should have expired")
	}
}

func TestSetWithTTLOverride(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(start)

	c := New(10, time.Hour)
	c.SetWithTTL("short", 1, time.Minute)
	c.Set("default", 2)

	globaltime.SetMockTime(start.Add(2 * time.Minute))
	if _, ok := c.Get("short"); ok {
		t.Fatalf("entry with overridden ttl should have expired")
	}
	if _, ok := c.Get("default"); !ok {
		t.Fatalf("entry with default ttl should still be fresh")
	}
}

func TestEvictsOldestWhenFull(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	c := New(2, time.Hour)
	globaltime.SetMockTime(start)
	c.Set("oldest", 1)
	globaltime.SetMockTime(start.Add(time.Second))
	c.Set("middle", 2)
	globaltime.SetMockTime(start.Add(2 * time.Second))
	c.Set("newest", 3)

	if _, ok := c.Get("oldest"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if _, ok := c.Get("middle"); !ok {
		t.Fatalf("middle entry should survive eviction")
	}
	if _, ok := c.Get("newest"); !ok {
		t.Fatalf("newest entry should survive eviction")
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	c := New(2, time.Hour)
	globaltime.SetMockTime(start)
	c.Set("a", 1)
	c.Set("b", 2)
	globaltime.SetMockTime(start.Add(time.Second))
	c.Set("a", 3)

	if got, ok := c.Get("a"); !ok || got != 3 {
		t.Fatalf("unexpected overwritten value: %v (found=%v)", got, ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("overwriting an existing key must not evict others")
	}
}

func TestCleanupExpired(t *testing.T) {
	defer globaltime.ResetTime()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	c := New(10, time.Minute)
	globaltime.SetMockTime(start)
	c.Set("old", 1)
	globaltime.SetMockTime(start.Add(59 * time.Second))
	c.Set("fresh", 2)

	globaltime.SetMockTime(start.Add(90 * time.Second))
	if removed := c.CleanupExpired(); removed != 1 {
		t.Fatalf("expected 1 expired entry removed, got %d", removed)
	}
	if stats := c.Stats(); stats.Size != 1 {
		t.Fatalf("expected 1 entry after cleanup, got %d", stats.Size)
	}
}

func TestStats(t *testing.T) {
	defer globaltime.ResetTime()
	globaltime.SetMockTime(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	c := New(5, time.Minute)
	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("unexpected hit/miss counts: %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Fatalf("unexpected hit rate: %v", stats.HitRate)
	}
	if stats.MaxSize != 5 || stats.Size != 1 {
		t.Fatalf("unexpected sizes: %d/%d", stats.Size, stats.MaxSize)
	}
}
