package app

import (
	"sync"

	"golang.org/x/time/rate"
)

// EntityLimiter applies a token bucket per entity id. It sits in front of the
// command parser as a standalone policy, never inside flow transitions.
type EntityLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewEntityLimiter builds a limiter allowing r events/second with the given
// burst per entity.
func NewEntityLimiter(r float64, burst int) *EntityLimiter {
	return &EntityLimiter{
		limit:   rate.Limit(r),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the entity may consume one message now.
func (l *EntityLimiter) Allow(entityID string) bool {
	l.mu.Lock()
	b, ok := l.buckets[entityID]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[entityID] = b
	}
	l.mu.Unlock()
	return b.Allow()
}
