// ABOUTME: Tests for the in-memory coordination store.
// ABOUTME: Validates dedup TTL windows, lock lease token safety, thread state expiry, and concurrency.

package coordination

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveDedup_FirstCallWins(t *testing.T) {
	s := NewMemoryStore()

	assert.True(t, s.ReserveDedup("dedup:web:evt-1", time.Minute))
	assert.False(t, s.ReserveDedup("dedup:web:evt-1", time.Minute))
}

func TestReserveDedup_ReusableAfterExpiry(t *testing.T) {
	s := NewMemoryStore()

	assert.True(t, s.ReserveDedup("dedup:web:evt-1", 10*time.Millisecond))
	assert.False(t, s.ReserveDedup("dedup:web:evt-1", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	assert.True(t, s.ReserveDedup("dedup:web:evt-1", 10*time.Millisecond))
}

func TestReserveDedup_ClampsPathologicalTTL(t *testing.T) {
	s := NewMemoryStore()

	// Zero and negative TTLs are clamped to 1ms rather than expiring instantly.
	assert.True(t, s.ReserveDedup("k", 0))
	assert.False(t, s.ReserveDedup("k", 0))

	assert.True(t, s.ReserveDedup("k2", -time.Second))
	assert.False(t, s.ReserveDedup("k2", -time.Second))
}

func TestAcquireLock_ExclusiveWhileHeld(t *testing.T) {
	s := NewMemoryStore()

	token, ok := s.AcquireLock("lock:web:thread-1", time.Minute)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok = s.AcquireLock("lock:web:thread-1", time.Minute)
	assert.False(t, ok)
}

func TestReleaseLock_CorrectTokenFreesLease(t *testing.T) {
	s := NewMemoryStore()

	token, ok := s.AcquireLock("lock:web:thread-1", time.Minute)
	require.True(t, ok)

	s.ReleaseLock("lock:web:thread-1", token)

	token2, ok := s.AcquireLock("lock:web:thread-1", time.Minute)
	assert.True(t, ok)
	assert.NotEqual(t, token, token2)
}

func TestReleaseLock_WrongTokenIsNoOp(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.AcquireLock("lock:web:thread-1", time.Minute)
	require.True(t, ok)

	s.ReleaseLock("lock:web:thread-1", "stale-token")
	s.ReleaseLock("lock:web:thread-1", "")
	s.ReleaseLock("lock:web:missing", "whatever")

	// Real holder's lease is untouched
	_, ok = s.AcquireLock("lock:web:thread-1", time.Minute)
	assert.False(t, ok)
}

func TestAcquireLock_LeaseExpiresAndSelfHeals(t *testing.T) {
	s := NewMemoryStore()

	staleToken, ok := s.AcquireLock("lock:web:thread-1", 10*time.Millisecond)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	// A crashed holder's lease is gone; someone else can acquire.
	_, ok = s.AcquireLock("lock:web:thread-1", time.Minute)
	require.True(t, ok)

	// The stale token must not release the new holder's lease.
	s.ReleaseLock("lock:web:thread-1", staleToken)
	_, ok = s.AcquireLock("lock:web:thread-1", time.Minute)
	assert.False(t, ok)
}

func TestThreadState_RoundTripWithinTTL(t *testing.T) {
	s := NewMemoryStore()

	payload := map[string]any{"last_event_id": "evt-42", "turns": 3}
	s.SetThreadState("thread:web:thread-1", payload, time.Minute)

	got, ok := s.GetThreadState("thread:web:thread-1")
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestThreadState_AbsentAfterExpiry(t *testing.T) {
	s := NewMemoryStore()

	s.SetThreadState("thread:web:thread-1", map[string]any{"x": 1}, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := s.GetThreadState("thread:web:thread-1")
	assert.False(t, ok)
}

func TestThreadState_MissingKey(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.GetThreadState("thread:web:never-set")
	assert.False(t, ok)
}

func TestPrune_WritesEvictExpiredEntries(t *testing.T) {
	s := NewMemoryStore()

	for i := 0; i < 50; i++ {
		s.ReserveDedup(fmt.Sprintf("dedup:web:evt-%d", i), 5*time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	// Any write prunes all keyspaces.
	s.SetThreadState("thread:web:t", map[string]any{}, time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.dedup)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if s.ReserveDedup("dedup:web:contested", time.Minute) {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
			key := fmt.Sprintf("lock:web:thread-%d", n%4)
			if token, ok := s.AcquireLock(key, time.Minute); ok {
				s.ReleaseLock(key, token)
			}
			s.SetThreadState(fmt.Sprintf("thread:web:%d", n), map[string]any{"n": n}, time.Minute)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, reserved, "exactly one goroutine wins the dedup reservation")
}

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "dedup:slack:evt-1", DedupKey("Slack", "EVT-1"))
	assert.Equal(t, "lock:slack:thread-1", LockKey("slack", "Thread-1"))
	assert.Equal(t, "thread:slack:thread-1", ThreadStateKey("slack", "thread-1"))

	assert.Equal(t, "dedup:unknown:unknown-event", DedupKey("", "  "))
	assert.Equal(t, "lock:unknown:unknown-thread", LockKey("", ""))
	assert.Equal(t, "thread:unknown:unknown-thread", ThreadStateKey("", ""))
}
