// ABOUTME: Delivery planner choosing how a response is transmitted on a channel.
// ABOUTME: Capability detection is interface-based; a nil stream or disabled transport counts as absent.

package delivery

import (
	"context"

	"github.com/2389/answer-gateway/internal/event"
)

// Mode is the chosen transmission mode for one response.
type Mode string

const (
	ModeSingle         Mode = "single"
	ModeStreamNative   Mode = "stream_native"
	ModeStreamBuffered Mode = "stream_buffered"
)

// Plan reasons, stable strings consumed by the audit ledger.
const (
	ReasonNoStream        = "no_stream_present"
	ReasonNativeStreaming = "channel_supports_native_streaming"
	ReasonBufferedStream  = "stream_present_without_native_transport"
)

// Plan is the planner's output. Never persisted beyond the audit row.
type Plan struct {
	Mode   Mode
	Reason string
}

// Sender is the plain send capability every channel adapter exposes.
type Sender interface {
	Send(ctx context.Context, target string, resp *event.OutgoingResponse) error
}

// StreamSender is implemented by channels with a native streaming transport.
type StreamSender interface {
	Sender
	SendStreaming(ctx context.Context, target string, resp *event.OutgoingResponse) error
}

// StreamingConfigured is an opt-in interface for StreamSender channels whose
// streaming transport can be absent at runtime (declared by the type, not
// configured on this instance). Channels without it are taken at their word.
type StreamingConfigured interface {
	StreamingConfigured() bool
}

// StreamCarrier is implemented by responses that can carry a chunk stream.
// A nil channel return means no stream is present for this call.
type StreamCarrier interface {
	StreamChunks() <-chan string
}

// PlanDelivery decides how resp should be sent over channel.
func PlanDelivery(channel Sender, resp *event.OutgoingResponse) Plan {
	if !hasStream(resp) {
		return Plan{Mode: ModeSingle, Reason: ReasonNoStream}
	}
	if supportsNativeStreaming(channel) {
		return Plan{Mode: ModeStreamNative, Reason: ReasonNativeStreaming}
	}
	return Plan{Mode: ModeStreamBuffered, Reason: ReasonBufferedStream}
}

func hasStream(resp *event.OutgoingResponse) bool {
	if resp == nil {
		return false
	}
	var carrier StreamCarrier = resp
	return carrier.StreamChunks() != nil
}

func supportsNativeStreaming(channel Sender) bool {
	ss, ok := channel.(StreamSender)
	if !ok {
		return false
	}
	if cfg, ok := ss.(StreamingConfigured); ok && !cfg.StreamingConfigured() {
		return false
	}
	return true
}
