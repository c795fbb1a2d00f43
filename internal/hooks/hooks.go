// ABOUTME: Hook interfaces and the ordered pre/post chain the gateway runs.
// ABOUTME: Priority bands keep ordering deterministic; registration order breaks ties.

package hooks

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/2389/answer-gateway/internal/event"
)

// Priority bands. Lower runs first. Hooks register anywhere within a band;
// the spread between bands leaves room for fixed orderings inside one.
const (
	PriorityCritical = 100 // authentication
	PriorityHigh     = 200 // rate limiting, PII scanning
	PriorityNormal   = 300 // business policy
	PriorityLow      = 400 // metrics and telemetry, never blocking
)

// Fixed priorities inside the normal band. The autosend override must have
// rewritten the routing decision before the escalation recorder reads it.
const (
	PriorityAutoSendOverride = PriorityNormal
	PriorityEscalationRecord = PriorityNormal + 20
)

// PreHook runs before the answer-generation call. A non-nil error aborts
// the pipeline: no later pre-hooks, no generation, no post-hooks.
type PreHook interface {
	Name() string
	Priority() int
	Execute(ctx context.Context, ev *event.InboundEvent) error
}

// PostHook runs against the produced response and may mutate it in place.
// Blocking reports whether an error from this hook short-circuits the
// chain and replaces the response; errors from non-blocking hooks are
// logged and swallowed.
type PostHook interface {
	Name() string
	Priority() int
	Blocking() bool
	Execute(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error
}

type preEntry struct {
	hook PreHook
	seq  int
}

type postEntry struct {
	hook PostHook
	seq  int
}

// Chain holds the ordered pre and post hook lists. Registration is
// idempotent per hook name and safe for concurrent use; execution reads a
// snapshot so a long pipeline never blocks registration.
type Chain struct {
	mu      sync.RWMutex
	pre     []preEntry
	post    []postEntry
	nextSeq int
	logger  *slog.Logger
}

// NewChain creates an empty hook chain.
func NewChain(logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{logger: logger.With("component", "hooks")}
}

// RegisterPre adds a pre-hook. Re-registering a name is a no-op.
func (c *Chain) RegisterPre(h PreHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.pre {
		if entry.hook.Name() == h.Name() {
			c.logger.Debug("pre-hook already registered", "hook", h.Name())
			return
		}
	}
	c.pre = append(c.pre, preEntry{hook: h, seq: c.nextSeq})
	c.nextSeq++
	sort.SliceStable(c.pre, func(i, j int) bool {
		if c.pre[i].hook.Priority() != c.pre[j].hook.Priority() {
			return c.pre[i].hook.Priority() < c.pre[j].hook.Priority()
		}
		return c.pre[i].seq < c.pre[j].seq
	})
	c.logger.Info("pre-hook registered", "hook", h.Name(), "priority", h.Priority())
}

// RegisterPost adds a post-hook. Re-registering a name is a no-op.
func (c *Chain) RegisterPost(h PostHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range c.post {
		if entry.hook.Name() == h.Name() {
			c.logger.Debug("post-hook already registered", "hook", h.Name())
			return
		}
	}
	c.post = append(c.post, postEntry{hook: h, seq: c.nextSeq})
	c.nextSeq++
	sort.SliceStable(c.post, func(i, j int) bool {
		if c.post[i].hook.Priority() != c.post[j].hook.Priority() {
			return c.post[i].hook.Priority() < c.post[j].hook.Priority()
		}
		return c.post[i].seq < c.post[j].seq
	})
	c.logger.Info("post-hook registered", "hook", h.Name(), "priority", h.Priority(), "blocking", h.Blocking())
}

// PreNames returns registered pre-hook names in execution order.
func (c *Chain) PreNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.pre))
	for i, entry := range c.pre {
		names[i] = entry.hook.Name()
	}
	return names
}

// PostNames returns registered post-hook names in execution order.
func (c *Chain) PostNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.post))
	for i, entry := range c.post {
		names[i] = entry.hook.Name()
	}
	return names
}

// RunPre executes pre-hooks in order, stopping at the first error.
// The error is returned verbatim; no later hook runs after a failure.
func (c *Chain) RunPre(ctx context.Context, ev *event.InboundEvent) error {
	c.mu.RLock()
	pre := make([]preEntry, len(c.pre))
	copy(pre, c.pre)
	c.mu.RUnlock()

	for _, entry := range pre {
		if err := entry.hook.Execute(ctx, ev); err != nil {
			c.logger.Warn("pre-hook rejected event",
				"hook", entry.hook.Name(),
				"event_id", ev.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// RunPost executes post-hooks in order against (ev, resp). An error from a
// blocking hook short-circuits and is returned; errors from non-blocking
// hooks are logged and execution continues.
func (c *Chain) RunPost(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error {
	c.mu.RLock()
	post := make([]postEntry, len(c.post))
	copy(post, c.post)
	c.mu.RUnlock()

	for _, entry := range post {
		err := entry.hook.Execute(ctx, ev, resp)
		if err == nil {
			continue
		}
		if entry.hook.Blocking() {
			c.logger.Warn("blocking post-hook rejected response",
				"hook", entry.hook.Name(),
				"event_id", ev.EventID,
				"error", err,
			)
			return err
		}
		c.logger.Error("post-hook failed, continuing",
			"hook", entry.hook.Name(),
			"event_id", ev.EventID,
			"error", err,
		)
	}
	return nil
}
