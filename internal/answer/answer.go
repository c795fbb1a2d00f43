// ABOUTME: Answer-generation collaborator contract consumed by the gateway.
// ABOUTME: The gateway only needs Query; transports live behind the interface.

package answer

import (
	"context"

	"github.com/2389/answer-gateway/internal/event"
)

// Turn is one prior exchange carried as chat history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is one question put to the answer engine.
type QueryRequest struct {
	Question    string `json:"question"`
	ChatHistory []Turn `json:"chat_history,omitempty"`

	// DetectionHint carries a detected product version or similar
	// classification. Older engines reject unknown fields; see Client.
	DetectionHint string `json:"detection_hint,omitempty"`
}

// Result is the engine's answer with its retrieval evidence.
type Result struct {
	Answer            string            `json:"answer"`
	Sources           []event.SourceRef `json:"sources"`
	Confidence        float64           `json:"confidence"`
	DetectedVersion   string            `json:"detected_version,omitempty"`
	VersionConfidence float64           `json:"version_confidence,omitempty"`
}

// Answerer produces an answer for a question. Implementations own their
// timeouts; the gateway propagates their errors instead of masking them.
type Answerer interface {
	Query(ctx context.Context, req QueryRequest) (*Result, error)
}
