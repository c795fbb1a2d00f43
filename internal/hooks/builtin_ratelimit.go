// ABOUTME: Rate-limit pre-hook charging one token per inbound event.
// ABOUTME: Denials surface limit, window, and retry-after so adapters can back off.

package hooks

import (
	"context"
	"time"

	"github.com/2389/answer-gateway/internal/event"
	"github.com/2389/answer-gateway/internal/ratelimit"
)

// RateLimitHook enforces a per-user token bucket in the high band.
type RateLimitHook struct {
	registry *ratelimit.Registry
	cost     int
	window   time.Duration
}

// NewRateLimitHook creates the rate-limit pre-hook. window describes the
// bucket's full refill span and is only used in error reporting; cost is
// the token charge per event.
func NewRateLimitHook(registry *ratelimit.Registry, cost int, window time.Duration) *RateLimitHook {
	if cost < 1 {
		cost = 1
	}
	return &RateLimitHook{registry: registry, cost: cost, window: window}
}

func (h *RateLimitHook) Name() string  { return "rate_limit" }
func (h *RateLimitHook) Priority() int { return PriorityHigh }

// Execute implements PreHook.
func (h *RateLimitHook) Execute(_ context.Context, ev *event.InboundEvent) error {
	allowed, meta := h.registry.Consume(ev.UserID, h.cost)
	if allowed {
		return nil
	}
	return RateLimitExceeded(meta.Limit, h.window, meta.RetryAfter)
}
