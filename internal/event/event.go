// ABOUTME: Inbound event and outgoing response types shared across the gateway.
// ABOUTME: Events are normalized at ingress and immutable once constructed.

package event

import (
	"strings"
	"time"
)

// Metadata keys consulted, in priority order, when deriving a thread ID.
var threadMetadataKeys = []string{"room_id", "conversation_id", "session_id", "chat_id"}

// InboundEvent is one normalized message from a channel adapter.
// Construct it with New so the thread ID derivation is applied; treat it
// as read-only afterward.
type InboundEvent struct {
	EventID    string
	ChannelID  string
	ThreadID   string
	UserID     string
	Text       string
	Metadata   map[string]string
	ReceivedAt time.Time
}

// New builds an InboundEvent, deriving ThreadID from metadata.
// Priority: room_id > conversation_id > session_id > chat_id, falling back
// to the user ID, then the event ID, so every event lands in some thread.
func New(eventID, channelID, userID, text string, metadata map[string]string) *InboundEvent {
	return &InboundEvent{
		EventID:    eventID,
		ChannelID:  channelID,
		ThreadID:   deriveThreadID(metadata, userID, eventID),
		UserID:     userID,
		Text:       text,
		Metadata:   metadata,
		ReceivedAt: time.Now(),
	}
}

func deriveThreadID(metadata map[string]string, userID, eventID string) string {
	for _, key := range threadMetadataKeys {
		if v := strings.TrimSpace(metadata[key]); v != "" {
			return v
		}
	}
	if userID != "" {
		return userID
	}
	return eventID
}

// SourceRef identifies one knowledge source that contributed to an answer.
type SourceRef struct {
	ID    string
	Title string
	URL   string
	Score float64
}

// OutgoingResponse is the answer produced for one inbound event. It is
// mutable while post-hooks run (redaction, routing overrides); ownership
// passes hook by hook, never concurrently.
type OutgoingResponse struct {
	MessageID     string
	InReplyTo     string
	Answer        string
	Sources       []SourceRef
	Confidence    float64
	Routing       RoutingDecision
	RequiresHuman bool

	// Stream, when non-nil, yields answer chunks in order. A response that
	// carries no stream is delivered as a single message.
	Stream <-chan string
}

// StreamChunks satisfies delivery.StreamCarrier. A nil channel means no
// stream is present for this call even though the type declares one.
func (r *OutgoingResponse) StreamChunks() <-chan string {
	return r.Stream
}

// Clone returns a shallow copy of the response. Buffered delivery uses it
// to swap the aggregated answer in without touching the original.
func (r *OutgoingResponse) Clone() *OutgoingResponse {
	c := *r
	return &c
}

// RoutingAction determines how a produced response is handled.
type RoutingAction string

const (
	ActionAutoSend    RoutingAction = "auto_send"
	ActionQueueMedium RoutingAction = "queue_medium"
	ActionNeedsHuman  RoutingAction = "needs_human"
)

// RoutingPriority orders held responses in the review queue.
type RoutingPriority string

const (
	PriorityNormal RoutingPriority = "normal"
	PriorityHigh   RoutingPriority = "high"
)

// RoutingDecision is derived once per event from the answer confidence.
// Only the autosend-policy post-hook may rewrite it afterward, and only to
// force queue_medium.
type RoutingDecision struct {
	Action          RoutingAction
	SendImmediately bool
	QueueForReview  bool
	Priority        RoutingPriority
	Reason          string
}
