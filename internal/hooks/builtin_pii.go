// ABOUTME: PII detection hooks for inbound text and generated answers.
// ABOUTME: The inbound scan and block-mode filter reject; redact-mode rewrites in place.

package hooks

import (
	"context"
	"regexp"
	"sort"

	"github.com/2389/answer-gateway/internal/event"
)

// PII categories reported in pii_detected errors.
const (
	PIICategoryEmail = "email"
	PIICategoryPhone = "phone"
	PIICategoryCard  = "card_number"
	PIICategorySSN   = "ssn"
)

var piiPatterns = map[string]*regexp.Regexp{
	PIICategoryEmail: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	PIICategoryPhone: regexp.MustCompile(`\+?\d[\d\s\-().]{8,}\d`),
	PIICategoryCard:  regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`),
	PIICategorySSN:   regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
}

const redactedPlaceholder = "[REDACTED]"

// DetectPII returns the sorted categories found in text.
func DetectPII(text string) []string {
	var found []string
	for category, pattern := range piiPatterns {
		if pattern.MatchString(text) {
			found = append(found, category)
		}
	}
	sort.Strings(found)
	return found
}

// RedactPII replaces every detected PII span in text with a placeholder.
func RedactPII(text string) string {
	for _, pattern := range piiPatterns {
		text = pattern.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// PIIScanHook is the high-band pre-hook rejecting inbound text that
// carries PII before it can reach answer generation.
type PIIScanHook struct{}

// NewPIIScanHook creates the inbound PII scan pre-hook.
func NewPIIScanHook() *PIIScanHook { return &PIIScanHook{} }

func (h *PIIScanHook) Name() string  { return "pii_scan" }
func (h *PIIScanHook) Priority() int { return PriorityHigh + 10 }

// Execute implements PreHook.
func (h *PIIScanHook) Execute(_ context.Context, ev *event.InboundEvent) error {
	if categories := DetectPII(ev.Text); len(categories) > 0 {
		return PIIDetected(categories)
	}
	return nil
}

// PIIMode selects what the response-side filter does on detection.
type PIIMode string

const (
	// PIIModeBlock rejects the whole response. The hook is blocking.
	PIIModeBlock PIIMode = "block"

	// PIIModeRedact rewrites the answer in place and lets it through.
	PIIModeRedact PIIMode = "redact"
)

// PIIFilterHook inspects the generated answer in the high band.
type PIIFilterHook struct {
	mode PIIMode
}

// NewPIIFilterHook creates the response-side PII filter.
func NewPIIFilterHook(mode PIIMode) *PIIFilterHook {
	return &PIIFilterHook{mode: mode}
}

func (h *PIIFilterHook) Name() string   { return "pii_filter" }
func (h *PIIFilterHook) Priority() int  { return PriorityHigh }
func (h *PIIFilterHook) Blocking() bool { return h.mode == PIIModeBlock }

// Execute implements PostHook.
func (h *PIIFilterHook) Execute(_ context.Context, _ *event.InboundEvent, resp *event.OutgoingResponse) error {
	categories := DetectPII(resp.Answer)
	if len(categories) == 0 {
		return nil
	}
	if h.mode == PIIModeBlock {
		return PIIDetected(categories)
	}
	resp.Answer = RedactPII(resp.Answer)
	return nil
}
