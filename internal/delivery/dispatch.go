// ABOUTME: Streaming dispatch helpers executing a delivery plan against a channel.
// ABOUTME: Buffered delivery drains the stream and plain-sends one aggregated clone.

package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/answer-gateway/internal/event"
)

// Dispatch executes plan for resp on channel. The returned error is the
// channel transport's error, wrapped with the mode that failed.
func Dispatch(ctx context.Context, channel Sender, target string, resp *event.OutgoingResponse, plan Plan) error {
	switch plan.Mode {
	case ModeStreamNative:
		return DeliverNativeStream(ctx, channel, target, resp)
	case ModeStreamBuffered:
		return DeliverBufferedStream(ctx, channel, target, resp)
	default:
		if err := channel.Send(ctx, target, resp); err != nil {
			return fmt.Errorf("single send: %w", err)
		}
		return nil
	}
}

// DeliverNativeStream hands the response to the channel's native streaming
// transport. The channel must implement StreamSender; the planner only
// chooses native mode when it does.
func DeliverNativeStream(ctx context.Context, channel Sender, target string, resp *event.OutgoingResponse) error {
	ss, ok := channel.(StreamSender)
	if !ok {
		return fmt.Errorf("channel %T has no native streaming transport", channel)
	}
	if err := ss.SendStreaming(ctx, target, resp); err != nil {
		return fmt.Errorf("native stream send: %w", err)
	}
	return nil
}

// DeliverBufferedStream drains the response stream into ordered non-empty
// chunks, concatenates them, and plain-sends a clone carrying the
// aggregated text. An empty drain falls back to the static answer; a
// response without a stream falls through to a plain send of the original.
func DeliverBufferedStream(ctx context.Context, channel Sender, target string, resp *event.OutgoingResponse) error {
	stream := resp.StreamChunks()
	if stream == nil {
		if err := channel.Send(ctx, target, resp); err != nil {
			return fmt.Errorf("fallback send: %w", err)
		}
		return nil
	}

	var sb strings.Builder
	for {
		select {
		case chunk, open := <-stream:
			if !open {
				aggregated := sb.String()
				if aggregated == "" {
					aggregated = resp.Answer
				}
				clone := resp.Clone()
				clone.Answer = aggregated
				clone.Stream = nil
				if err := channel.Send(ctx, target, clone); err != nil {
					return fmt.Errorf("buffered send: %w", err)
				}
				return nil
			}
			if chunk != "" {
				sb.WriteString(chunk)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
