// ABOUTME: Confidence-driven router mapping answer confidence to a routing action.
// ABOUTME: Thresholds are fixed; observation of decisions never feeds back into them.

package routing

import (
	"github.com/2389/answer-gateway/internal/event"
)

// Confidence thresholds. Lower bounds are inclusive: exactly 0.95 auto-sends
// and exactly 0.70 queues.
const (
	AutoSendThreshold = 0.95
	QueueThreshold    = 0.70
)

// Router maps a confidence score to a routing decision. The zero-value
// Router works; attach Metrics to record decision outcomes.
type Router struct {
	metrics *Metrics
}

// NewRouter creates a Router recording outcomes into metrics.
// A nil metrics disables recording.
func NewRouter(metrics *Metrics) *Router {
	return &Router{metrics: metrics}
}

// Route picks the routing action for a confidence score.
//
//	confidence >= 0.95          auto_send, sent immediately
//	0.70 <= confidence < 0.95   queue_medium, normal priority
//	confidence < 0.70           needs_human, high priority, flagged
func (r *Router) Route(confidence float64) event.RoutingDecision {
	var decision event.RoutingDecision

	switch {
	case confidence >= AutoSendThreshold:
		decision = event.RoutingDecision{
			Action:          event.ActionAutoSend,
			SendImmediately: true,
			Priority:        event.PriorityNormal,
		}
	case confidence >= QueueThreshold:
		decision = event.RoutingDecision{
			Action:         event.ActionQueueMedium,
			QueueForReview: true,
			Priority:       event.PriorityNormal,
		}
	default:
		decision = event.RoutingDecision{
			Action:         event.ActionNeedsHuman,
			QueueForReview: true,
			Priority:       event.PriorityHigh,
		}
	}

	if r.metrics != nil {
		r.metrics.RecordDecision(decision.Action, confidence)
	}
	return decision
}
