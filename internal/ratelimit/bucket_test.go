// ABOUTME: Tests for the token bucket and per-user registry.
// ABOUTME: Validates burst capacity, retry-after estimation, continuous refill, and user isolation.

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_BurstUpToCapacity(t *testing.T) {
	b := NewBucket(20, 1.0)

	for i := 0; i < 20; i++ {
		allowed, _ := b.Consume(1)
		require.True(t, allowed, "consume %d within capacity", i+1)
	}

	allowed, meta := b.Consume(1)
	assert.False(t, allowed)
	assert.Equal(t, 20, meta.Limit)
	// Nothing refilled yet, so one full token must accumulate at 1 token/s.
	assert.InDelta(t, time.Second.Seconds(), meta.RetryAfter.Seconds(), 0.05)
}

func TestBucket_ContinuousRefill(t *testing.T) {
	b := NewBucket(10, 50.0)

	for i := 0; i < 10; i++ {
		allowed, _ := b.Consume(1)
		require.True(t, allowed)
	}
	allowed, _ := b.Consume(1)
	require.False(t, allowed)

	// 100ms at 50 tokens/s refills ~5 tokens.
	time.Sleep(120 * time.Millisecond)

	for i := 0; i < 5; i++ {
		allowed, _ := b.Consume(1)
		assert.True(t, allowed, "refilled token %d", i+1)
	}
}

func TestBucket_RemainingDecreases(t *testing.T) {
	b := NewBucket(10, 1.0)

	_, meta := b.Consume(4)
	assert.InDelta(t, 6, meta.Remaining, 0.1)

	_, meta = b.Consume(4)
	assert.InDelta(t, 2, meta.Remaining, 0.1)
}

func TestBucket_RetryAfterScalesWithShortfall(t *testing.T) {
	b := NewBucket(4, 2.0)

	allowed, _ := b.Consume(4)
	require.True(t, allowed)

	// Need 3 tokens at 2 tokens/s: ~1.5s.
	allowed, meta := b.Consume(3)
	require.False(t, allowed)
	assert.InDelta(t, 1.5, meta.RetryAfter.Seconds(), 0.1)
}

func TestRegistry_IsolatesUsers(t *testing.T) {
	r := NewRegistry(2, 1.0)

	allowed, _ := r.Consume("alice", 2)
	require.True(t, allowed)
	allowed, _ = r.Consume("alice", 1)
	require.False(t, allowed)

	// Bob has his own bucket.
	allowed, _ = r.Consume("bob", 2)
	assert.True(t, allowed)
}

func TestRegistry_NewUsersStartFull(t *testing.T) {
	r := NewRegistry(5, 1.0)

	allowed, meta := r.Consume("carol", 5)
	assert.True(t, allowed)
	assert.InDelta(t, 0, meta.Remaining, 0.1)
}
