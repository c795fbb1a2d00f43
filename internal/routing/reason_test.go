// ABOUTME: Tests for routing reason generation.
// ABOUTME: Covers templates per action, the length cap, rounding, and version clauses.

package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2389/answer-gateway/internal/event"
)

func TestReason_AutoSendLabels(t *testing.T) {
	tests := []struct {
		confidence float64
		label      string
	}{
		{0.96, "High confidence"},
		{0.85, "High confidence"},
		{0.75, "Good confidence"},
		{0.50, "Moderate confidence"},
	}

	for _, tt := range tests {
		reason := Reason(tt.confidence, event.ActionAutoSend, 2, "", 0)
		assert.Contains(t, reason, tt.label)
		assert.Contains(t, reason, "2 sources found")
	}
}

func TestReason_RoundedPercentage(t *testing.T) {
	reason := Reason(0.958, event.ActionAutoSend, 1, "", 0)
	assert.Contains(t, reason, "96%")

	reason = Reason(0.954, event.ActionAutoSend, 1, "", 0)
	assert.Contains(t, reason, "95%")
}

func TestReason_SourceCountWording(t *testing.T) {
	assert.Contains(t, Reason(0.8, event.ActionQueueMedium, 0, "", 0), "no sources found")
	assert.Contains(t, Reason(0.8, event.ActionQueueMedium, 1, "", 0), "1 source found")
	assert.Contains(t, Reason(0.8, event.ActionQueueMedium, 5, "", 0), "5 sources found")
}

func TestReason_QueueMediumTemplate(t *testing.T) {
	reason := Reason(0.82, event.ActionQueueMedium, 3, "", 0)
	assert.Equal(t, "Moderate confidence (82%) - 3 sources found, review recommended", reason)
}

func TestReason_NeedsHumanDistinguishesZeroSources(t *testing.T) {
	zero := Reason(0.4, event.ActionNeedsHuman, 0, "", 0)
	some := Reason(0.4, event.ActionNeedsHuman, 2, "", 0)

	assert.Contains(t, zero, "No relevant sources found")
	assert.Contains(t, some, "Low confidence")
	assert.Contains(t, some, "2 sources found")
	assert.NotEqual(t, zero, some)
}

func TestReason_UnknownActionFallback(t *testing.T) {
	reason := Reason(0.66, event.RoutingAction("escalate_legal"), 4, "", 0)

	assert.Contains(t, reason, "66%")
	assert.Contains(t, reason, "4 sources found")
	assert.Contains(t, reason, "escalate_legal")
}

func TestReason_VersionClause(t *testing.T) {
	matched := Reason(0.9, event.ActionQueueMedium, 1, "v2.4", 0.8)
	assert.Contains(t, matched, "matched v2.4 context")

	weak := Reason(0.9, event.ActionQueueMedium, 1, "v2.4", 0.5)
	assert.Contains(t, weak, "detected v2.4")
	assert.NotContains(t, weak, "matched")

	none := Reason(0.9, event.ActionQueueMedium, 1, "", 0.99)
	assert.NotContains(t, none, "detected")
}

func TestReason_NeverExceedsCap(t *testing.T) {
	longVersion := strings.Repeat("very-long-product-version-", 40)

	for _, action := range []event.RoutingAction{
		event.ActionAutoSend, event.ActionQueueMedium, event.ActionNeedsHuman, "unknown",
	} {
		reason := Reason(0.77, action, 12, longVersion, 0.9)
		assert.LessOrEqual(t, len(reason), 500)
		assert.Contains(t, reason, "77%")
	}
}
