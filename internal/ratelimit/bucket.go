// ABOUTME: Per-user token buckets with continuous refill and retry-after estimation.
// ABOUTME: Buckets wrap x/time rate.Limiter; the registry bounds tracked users and prunes idle ones.

package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedUsers caps the registry so rotating user IDs cannot grow
	// memory without bound.
	maxTrackedUsers = 4096

	// idleEvictAfter is how long a bucket may sit unused before the
	// registry reclaims it when approaching the cap.
	idleEvictAfter = 10 * time.Minute
)

// Metadata describes the outcome of a Consume call.
type Metadata struct {
	// Remaining is the token count left after the call.
	Remaining float64

	// RetryAfter estimates, on denial, how long until the shortfall
	// refills at the current rate. Zero when the call was allowed.
	RetryAfter time.Duration

	// Limit is the bucket capacity, for error reporting.
	Limit int
}

// Bucket is one user's token bucket: capacity tokens, refilled
// continuously at refillRate tokens per second.
type Bucket struct {
	limiter    *rate.Limiter
	capacity   int
	refillRate float64
	lastSeen   time.Time
}

// NewBucket creates a full bucket.
func NewBucket(capacity int, refillRate float64) *Bucket {
	return &Bucket{
		limiter:    rate.NewLimiter(rate.Limit(refillRate), capacity),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Consume takes n tokens if available. Refill is computed from elapsed
// wall time, not discrete ticks, so fractional tokens accumulate between
// calls.
func (b *Bucket) Consume(n int) (bool, Metadata) {
	now := time.Now()
	b.lastSeen = now

	if b.limiter.AllowN(now, n) {
		return true, Metadata{
			Remaining: b.limiter.TokensAt(now),
			Limit:     b.capacity,
		}
	}

	tokens := b.limiter.TokensAt(now)
	shortfall := float64(n) - tokens
	var retryAfter time.Duration
	if b.refillRate > 0 && shortfall > 0 {
		retryAfter = time.Duration(shortfall / b.refillRate * float64(time.Second))
	}
	return false, Metadata{
		Remaining:  tokens,
		RetryAfter: retryAfter,
		Limit:      b.capacity,
	}
}

// Registry hands out one bucket per user key. Safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	buckets    map[string]*Bucket
	capacity   int
	refillRate float64
}

// NewRegistry creates a registry producing buckets with the given shape.
func NewRegistry(capacity int, refillRate float64) *Registry {
	return &Registry{
		buckets:    make(map[string]*Bucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
}

// Consume takes n tokens from the user's bucket, creating it full on
// first sight.
func (r *Registry) Consume(userID string, n int) (bool, Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[userID]
	if !ok {
		if len(r.buckets) >= maxTrackedUsers {
			r.evictLocked()
		}
		b = NewBucket(r.capacity, r.refillRate)
		r.buckets[userID] = b
	}
	return b.Consume(n)
}

// evictLocked drops idle buckets, then falls back to arbitrary eviction if
// every bucket is active. Must be called with mu held.
func (r *Registry) evictLocked() {
	cutoff := time.Now().Add(-idleEvictAfter)
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
	for len(r.buckets) >= maxTrackedUsers {
		for key := range r.buckets {
			delete(r.buckets, key)
			break
		}
	}
}
