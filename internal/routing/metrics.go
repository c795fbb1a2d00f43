// ABOUTME: In-process counters for routing outcomes and confidence distribution.
// ABOUTME: Read through Snapshot for the metrics endpoint; recording never blocks a decision.

package routing

import (
	"sync"

	"github.com/2389/answer-gateway/internal/event"
)

// histogram bucket upper bounds for confidence scores.
var confidenceBuckets = []float64{0.5, 0.7, 0.8, 0.9, 0.95, 1.0}

// Metrics accumulates request and routing-outcome counters. Safe for
// concurrent use; recording is a pure side effect of routing.
type Metrics struct {
	mu            sync.Mutex
	requests      int64
	byAction      map[event.RoutingAction]int64
	finalByAction map[event.RoutingAction]int64
	buckets       []int64
	samples       int64
	sum           float64
}

// NewMetrics creates an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{
		byAction:      make(map[event.RoutingAction]int64),
		finalByAction: make(map[event.RoutingAction]int64),
		buckets:       make([]int64, len(confidenceBuckets)),
	}
}

// RecordRequest counts one processed inbound event.
func (m *Metrics) RecordRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

// RecordDecision counts one routing outcome and adds the confidence to the
// distribution.
func (m *Metrics) RecordDecision(action event.RoutingAction, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byAction[action]++
	m.samples++
	m.sum += confidence
	for i, bound := range confidenceBuckets {
		if confidence <= bound {
			m.buckets[i]++
			break
		}
	}
}

// RecordFinalAction counts the routing action after post-hook overrides.
func (m *Metrics) RecordFinalAction(action event.RoutingAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalByAction[action]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests          int64                         `json:"requests"`
	RoutingByAction   map[event.RoutingAction]int64 `json:"routing_by_action"`
	FinalByAction     map[event.RoutingAction]int64 `json:"final_by_action"`
	ConfidenceBuckets map[string]int64              `json:"confidence_buckets"`
	ConfidenceSamples int64                         `json:"confidence_samples"`
	ConfidenceSum     float64                       `json:"confidence_sum"`
}

// Snapshot returns a copy of all counters for metrics export.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	byAction := make(map[event.RoutingAction]int64, len(m.byAction))
	for action, n := range m.byAction {
		byAction[action] = n
	}
	finalByAction := make(map[event.RoutingAction]int64, len(m.finalByAction))
	for action, n := range m.finalByAction {
		finalByAction[action] = n
	}

	buckets := make(map[string]int64, len(confidenceBuckets))
	labels := []string{"le_0.5", "le_0.7", "le_0.8", "le_0.9", "le_0.95", "le_1.0"}
	for i, label := range labels {
		buckets[label] = m.buckets[i]
	}

	return Snapshot{
		Requests:          m.requests,
		RoutingByAction:   byAction,
		FinalByAction:     finalByAction,
		ConfidenceBuckets: buckets,
		ConfidenceSamples: m.samples,
		ConfidenceSum:     m.sum,
	}
}
