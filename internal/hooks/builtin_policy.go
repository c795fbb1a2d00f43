// ABOUTME: Business-policy hooks consulting per-channel generation and autosend settings.
// ABOUTME: The autosend override runs before any hook that records escalations downstream.

package hooks

import (
	"context"

	"github.com/2389/answer-gateway/internal/event"
	"github.com/2389/answer-gateway/internal/policy"
)

// PolicyService is what the policy hooks need from the policy layer.
type PolicyService interface {
	IsGenerationEnabled(ctx context.Context, channelID string) policy.Lookup
	IsAutoSendEnabled(ctx context.Context, channelID string) policy.Lookup
}

// GenerationPolicyHook rejects events on channels where answer generation
// is switched off. A failed lookup follows the service's fallback answer.
type GenerationPolicyHook struct {
	policies PolicyService
}

// NewGenerationPolicyHook creates the generation-policy pre-hook.
func NewGenerationPolicyHook(policies PolicyService) *GenerationPolicyHook {
	return &GenerationPolicyHook{policies: policies}
}

func (h *GenerationPolicyHook) Name() string  { return "generation_policy" }
func (h *GenerationPolicyHook) Priority() int { return PriorityNormal }

// Execute implements PreHook.
func (h *GenerationPolicyHook) Execute(ctx context.Context, ev *event.InboundEvent) error {
	lookup := h.policies.IsGenerationEnabled(ctx, ev.ChannelID)
	if !lookup.Enabled {
		return ServiceUnavailable("answer generation is disabled for channel " + ev.ChannelID)
	}
	return nil
}

// AutoSendPolicyHook downgrades auto_send decisions to queue_medium on
// channels where autosend is disabled. It never errors.
type AutoSendPolicyHook struct {
	policies PolicyService
}

// NewAutoSendPolicyHook creates the autosend-policy post-hook.
func NewAutoSendPolicyHook(policies PolicyService) *AutoSendPolicyHook {
	return &AutoSendPolicyHook{policies: policies}
}

func (h *AutoSendPolicyHook) Name() string   { return "autosend_policy" }
func (h *AutoSendPolicyHook) Priority() int  { return PriorityAutoSendOverride }
func (h *AutoSendPolicyHook) Blocking() bool { return false }

// Execute implements PostHook.
func (h *AutoSendPolicyHook) Execute(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error {
	if resp.Routing.Action != event.ActionAutoSend {
		return nil
	}
	lookup := h.policies.IsAutoSendEnabled(ctx, ev.ChannelID)
	if lookup.Enabled {
		return nil
	}

	resp.Routing.Action = event.ActionQueueMedium
	resp.Routing.SendImmediately = false
	resp.Routing.QueueForReview = true
	resp.Routing.Priority = event.PriorityNormal
	resp.Routing.Reason += "; autosend disabled for channel"
	return nil
}
