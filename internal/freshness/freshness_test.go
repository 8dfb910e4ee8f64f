package freshness

import (
	"testing"
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

func TestIsStale(t *testing.T) {
	defer globaltime.ResetTime()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	globaltime.SetMockTime(now)

	policy := NewPolicy(5 * time.Minute)

	if policy.IsStale(now.Add(-4 * time.Minute)) {
		t.Fatalf("record inside the ttl must be fresh")
	}
	if policy.IsStale(now.Add(-5 * time.Minute)) {
		t.Fatalf("record at exactly the ttl is still fresh")
	}
	if !policy.IsStale(now.Add(-5*time.Minute - time.Second)) {
		t.Fatalf("record past the ttl must be stale")
	}
}

func TestNewPolicyDefault(t *testing.T) {
	if got := NewPolicy(0).TTL(); got != 5*time.Minute {
		t.Fatalf("unexpected default ttl: %v", got)
	}
	if got := NewPolicy(time.Hour).TTL(); got != time.Hour {
		t.Fatalf("unexpected ttl: %v", got)
	}
}
