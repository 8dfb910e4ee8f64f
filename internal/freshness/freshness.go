package freshness

import (
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

// Policy decides whether a stored product is too old to serve without a
// refresh. A record is stale strictly after its age exceeds the TTL.
type Policy struct {
	ttl time.Duration
}

func NewPolicy(ttl time.Duration) Policy {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return Policy{ttl: ttl}
}

func (p Policy) TTL() time.Duration { return p.ttl }

func (p Policy) IsStale(updatedAt time.Time) bool {
	return globaltime.Since(updatedAt) > p.ttl
}

func (p Policy) Age(updatedAt time.Time) time.Duration {
	return globaltime.Since(updatedAt)
}
