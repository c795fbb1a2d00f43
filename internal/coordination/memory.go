// ABOUTME: In-memory Store implementation with lazy TTL expiry.
// ABOUTME: One mutex covers all three keyspaces so pruning stays consistent with reads.

package coordination

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// minTTL guards against zero or negative TTLs turning a reservation into
// an immediately-expired no-op.
const minTTL = time.Millisecond

type lockLease struct {
	token     string
	expiresAt time.Time
}

type stateEntry struct {
	payload   map[string]any
	expiresAt time.Time
}

// MemoryStore is the single-process Store implementation. Every operation
// is one critical section under mu; expired entries are treated as absent
// on read and physically removed by a full prune on every write, which
// bounds memory without a background goroutine.
type MemoryStore struct {
	mu     sync.Mutex
	dedup  map[string]time.Time
	locks  map[string]lockLease
	states map[string]stateEntry
}

// NewMemoryStore creates an empty in-memory coordination store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dedup:  make(map[string]time.Time),
		locks:  make(map[string]lockLease),
		states: make(map[string]stateEntry),
	}
}

// ReserveDedup implements Store.
func (s *MemoryStore) ReserveDedup(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := s.dedup[key]; ok && now.Before(expiresAt) {
		return false
	}

	s.pruneLocked(now)
	s.dedup[key] = now.Add(clampTTL(ttl))
	return true
}

// AcquireLock implements Store.
func (s *MemoryStore) AcquireLock(key string, ttl time.Duration) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if lease, ok := s.locks[key]; ok && now.Before(lease.expiresAt) {
		return "", false
	}

	s.pruneLocked(now)
	token := uuid.New().String()
	s.locks[key] = lockLease{token: token, expiresAt: now.Add(clampTTL(ttl))}
	return token, true
}

// ReleaseLock implements Store.
func (s *MemoryStore) ReleaseLock(key, token string) {
	if token == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lease, ok := s.locks[key]; ok && lease.token == token {
		delete(s.locks, key)
	}
}

// GetThreadState implements Store.
func (s *MemoryStore) GetThreadState(key string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[key]
	if !ok || !time.Now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

// SetThreadState implements Store.
func (s *MemoryStore) SetThreadState(key string, value map[string]any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneLocked(now)
	s.states[key] = stateEntry{payload: value, expiresAt: now.Add(clampTTL(ttl))}
}

// pruneLocked drops every expired entry across all keyspaces. Must be
// called with mu held.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, expiresAt := range s.dedup {
		if !now.Before(expiresAt) {
			delete(s.dedup, key)
		}
	}
	for key, lease := range s.locks {
		if !now.Before(lease.expiresAt) {
			delete(s.locks, key)
		}
	}
	for key, entry := range s.states {
		if !now.Before(entry.expiresAt) {
			delete(s.states, key)
		}
	}
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
