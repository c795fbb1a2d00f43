// ABOUTME: Human-readable routing reason generation from router output.
// ABOUTME: Output is bounded at 500 characters and always embeds the rounded confidence.

package routing

import (
	"fmt"
	"math"

	"github.com/2389/answer-gateway/internal/event"
)

// maxReasonLength bounds the generated reason so downstream review tooling
// can store it in a fixed column.
const maxReasonLength = 500

// versionMatchThreshold is the detection confidence above which a detected
// product version counts as a real context match.
const versionMatchThreshold = 0.7

// Reason produces the explanation attached to a routing decision.
// detectedVersion may be empty; versionConfidence is only consulted when a
// version is present.
func Reason(confidence float64, action event.RoutingAction, numSources int, detectedVersion string, versionConfidence float64) string {
	percent := int(math.Round(confidence * 100))
	sources := sourceText(numSources)

	var reason string
	switch action {
	case event.ActionAutoSend:
		reason = fmt.Sprintf("%s (%d%%) - %s", confidenceLabel(confidence), percent, sources)
	case event.ActionQueueMedium:
		reason = fmt.Sprintf("Moderate confidence (%d%%) - %s, review recommended", percent, sources)
	case event.ActionNeedsHuman:
		if numSources == 0 {
			reason = fmt.Sprintf("No relevant sources found (%d%%), needs human attention", percent)
		} else {
			reason = fmt.Sprintf("Low confidence (%d%%) despite %s, needs human review", percent, sources)
		}
	default:
		reason = fmt.Sprintf("Confidence %d%%, %s, action %s", percent, sources, action)
	}

	if detectedVersion != "" {
		if versionConfidence >= versionMatchThreshold {
			reason += fmt.Sprintf(", matched %s context", detectedVersion)
		} else {
			reason += fmt.Sprintf(", detected %s", detectedVersion)
		}
	}

	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength]
	}
	return reason
}

func confidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.85:
		return "High confidence"
	case confidence >= 0.70:
		return "Good confidence"
	default:
		return "Moderate confidence"
	}
}

func sourceText(numSources int) string {
	switch numSources {
	case 0:
		return "no sources found"
	case 1:
		return "1 source found"
	default:
		return fmt.Sprintf("%d sources found", numSources)
	}
}
