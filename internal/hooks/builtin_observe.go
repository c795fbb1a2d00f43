// ABOUTME: Low-band observation hooks: escalation recording and outcome metrics.
// ABOUTME: Their failures are logged and swallowed; they can never block a response.

package hooks

import (
	"context"

	"github.com/2389/answer-gateway/internal/event"
	"github.com/2389/answer-gateway/internal/routing"
)

// EscalationRecorder persists review-queue entries for responses held for
// a human. Implemented by the store layer.
type EscalationRecorder interface {
	RecordEscalation(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error
}

// EscalationRecordHook records held responses. It runs after the autosend
// override so it sees the final routing decision, and its priority sits
// just above the override's to pin that ordering.
type EscalationRecordHook struct {
	recorder EscalationRecorder
}

// NewEscalationRecordHook creates the escalation-record post-hook.
func NewEscalationRecordHook(recorder EscalationRecorder) *EscalationRecordHook {
	return &EscalationRecordHook{recorder: recorder}
}

func (h *EscalationRecordHook) Name() string   { return "escalation_record" }
func (h *EscalationRecordHook) Priority() int  { return PriorityEscalationRecord }
func (h *EscalationRecordHook) Blocking() bool { return false }

// Execute implements PostHook.
func (h *EscalationRecordHook) Execute(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error {
	if !resp.Routing.QueueForReview && !resp.RequiresHuman {
		return nil
	}
	return h.recorder.RecordEscalation(ctx, ev, resp)
}

// OutcomeMetricsHook records the final routing action after every override
// has run, as opposed to the router's own counters which see the raw
// decision.
type OutcomeMetricsHook struct {
	metrics *routing.Metrics
}

// NewOutcomeMetricsHook creates the outcome-metrics post-hook.
func NewOutcomeMetricsHook(metrics *routing.Metrics) *OutcomeMetricsHook {
	return &OutcomeMetricsHook{metrics: metrics}
}

func (h *OutcomeMetricsHook) Name() string   { return "outcome_metrics" }
func (h *OutcomeMetricsHook) Priority() int  { return PriorityLow }
func (h *OutcomeMetricsHook) Blocking() bool { return false }

// Execute implements PostHook.
func (h *OutcomeMetricsHook) Execute(_ context.Context, _ *event.InboundEvent, resp *event.OutgoingResponse) error {
	h.metrics.RecordFinalAction(resp.Routing.Action)
	return nil
}
