// ABOUTME: Store interface and key scheme for per-event coordination state.
// ABOUTME: Covers dedup reservations, thread lock leases, and ephemeral thread state.

package coordination

import (
	"fmt"
	"strings"
	"time"
)

// Store provides the coordination primitives the gateway needs to process
// each inbound event at most once and each thread one event at a time.
// Implementations must be safe for concurrent use. The in-memory
// implementation in this package is the default; a network-backed store
// can sit behind the same interface.
type Store interface {
	// ReserveDedup records a reservation for key lasting ttl and returns
	// true iff no live reservation existed. A false return means the key
	// was already reserved and the caller must not process the event.
	ReserveDedup(key string, ttl time.Duration) bool

	// AcquireLock grants a lease on key lasting ttl, returning an opaque
	// token and true. If a live lease exists it returns "", false.
	AcquireLock(key string, ttl time.Duration) (string, bool)

	// ReleaseLock removes the lease on key only when token matches the
	// stored token exactly. Mismatch, missing key, or empty token is a
	// no-op so a stale holder can never release a reacquired lease.
	ReleaseLock(key, token string)

	// GetThreadState returns the cached state for key, or ok=false when
	// absent or expired.
	GetThreadState(key string) (map[string]any, bool)

	// SetThreadState stores value under key for ttl.
	SetThreadState(key string, value map[string]any, ttl time.Duration)
}

// defaults substituted when a caller passes blank key components.
const (
	unknownChannel = "unknown"
	unknownEvent   = "unknown-event"
	unknownThread  = "unknown-thread"
)

// DedupKey builds the canonical dedup key for a channel/event pair.
func DedupKey(channelID, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", component(channelID, unknownChannel), component(eventID, unknownEvent))
}

// LockKey builds the canonical lock key for a channel/thread pair.
func LockKey(channelID, threadID string) string {
	return fmt.Sprintf("lock:%s:%s", component(channelID, unknownChannel), component(threadID, unknownThread))
}

// ThreadStateKey builds the canonical thread-state key for a channel/thread pair.
func ThreadStateKey(channelID, threadID string) string {
	return fmt.Sprintf("thread:%s:%s", component(channelID, unknownChannel), component(threadID, unknownThread))
}

func component(v, fallback string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}
