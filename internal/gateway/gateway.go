// ABOUTME: Gateway orchestrator running the inbound event pipeline.
// ABOUTME: Dedup and thread locking bracket the hook chain, generation, routing, and delivery.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/answer-gateway/internal/answer"
	"github.com/2389/answer-gateway/internal/coordination"
	"github.com/2389/answer-gateway/internal/delivery"
	"github.com/2389/answer-gateway/internal/event"
	"github.com/2389/answer-gateway/internal/hooks"
	"github.com/2389/answer-gateway/internal/routing"
	"github.com/2389/answer-gateway/internal/store"
)

// Rejections the caller can distinguish from pipeline failures. A duplicate
// event was already accepted once; a busy thread is processing an earlier
// event and the sender should retry.
var (
	ErrDuplicateEvent = errors.New("duplicate event")
	ErrThreadBusy     = errors.New("thread busy")
)

// maxHistoryTurns bounds the chat history carried in thread state. Two
// entries per exchange, so this keeps the last ten exchanges.
const maxHistoryTurns = 20

// metadata key a channel adapter sets when it has already classified the
// product version the question is about.
const metadataDetectedVersion = "detected_version"

// TTLs groups the coordination lifetimes the gateway uses.
type TTLs struct {
	Dedup       time.Duration
	Lock        time.Duration
	ThreadState time.Duration
}

// Options carries the collaborators a ChannelGateway needs.
type Options struct {
	Coordination coordination.Store
	Answerer     answer.Answerer
	Metrics      *routing.Metrics
	Audit        store.Store
	TTLs         TTLs
	Logger       *slog.Logger
}

// ChannelGateway processes inbound events from all channel adapters. One
// instance serves every channel; per-thread serialization comes from
// coordination locks, not from the gateway itself.
type ChannelGateway struct {
	coordination coordination.Store
	chain        *hooks.Chain
	answerer     answer.Answerer
	router       *routing.Router
	metrics      *routing.Metrics
	audit        store.Store
	channels     map[string]delivery.Sender
	ttls         TTLs
	logger       *slog.Logger
}

// New creates a ChannelGateway. Metrics may be nil, in which case a fresh
// collector is created. Audit may be nil to disable the ledger.
func New(opts Options) (*ChannelGateway, error) {
	if opts.Coordination == nil {
		return nil, errors.New("coordination store is required")
	}
	if opts.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = routing.NewMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttls := opts.TTLs
	if ttls.Dedup == 0 {
		ttls.Dedup = 5 * time.Minute
	}
	if ttls.Lock == 0 {
		ttls.Lock = 30 * time.Second
	}
	if ttls.ThreadState == 0 {
		ttls.ThreadState = 15 * time.Minute
	}

	return &ChannelGateway{
		coordination: opts.Coordination,
		chain:        hooks.NewChain(logger),
		answerer:     opts.Answerer,
		router:       routing.NewRouter(metrics),
		metrics:      metrics,
		audit:        opts.Audit,
		channels:     make(map[string]delivery.Sender),
		ttls:         ttls,
		logger:       logger.With("component", "gateway"),
	}, nil
}

// RegisterChannel makes a delivery adapter available under channelID.
// Events for unregistered channels still process; their responses are held
// rather than sent. Register channels at startup, before serving events.
func (g *ChannelGateway) RegisterChannel(channelID string, sender delivery.Sender) {
	g.channels[channelID] = sender
	g.logger.Info("channel registered", "channel_id", channelID)
}

// RegisterPreHook adds a pre-hook to the pipeline.
func (g *ChannelGateway) RegisterPreHook(h hooks.PreHook) {
	g.chain.RegisterPre(h)
}

// RegisterPostHook adds a post-hook to the pipeline.
func (g *ChannelGateway) RegisterPostHook(h hooks.PostHook) {
	g.chain.RegisterPost(h)
}

// Metrics exposes the routing metrics collector for the HTTP endpoint.
func (g *ChannelGateway) Metrics() *routing.Metrics {
	return g.metrics
}

// Process runs one inbound event through the full pipeline and returns the
// produced response. Duplicates and busy threads are rejected before any
// hook or generation work happens; pipeline errors carry a taxonomy code
// via hooks.CodeOf.
func (g *ChannelGateway) Process(ctx context.Context, ev *event.InboundEvent) (*event.OutgoingResponse, error) {
	g.metrics.RecordRequest()

	logger := g.logger.With(
		"event_id", ev.EventID,
		"channel_id", ev.ChannelID,
		"thread_id", ev.ThreadID,
	)

	if !g.coordination.ReserveDedup(coordination.DedupKey(ev.ChannelID, ev.EventID), g.ttls.Dedup) {
		logger.Info("duplicate event rejected")
		return nil, ErrDuplicateEvent
	}

	lockKey := coordination.LockKey(ev.ChannelID, ev.ThreadID)
	token, ok := g.coordination.AcquireLock(lockKey, g.ttls.Lock)
	if !ok {
		logger.Info("thread busy, rejecting event")
		return nil, ErrThreadBusy
	}
	defer g.coordination.ReleaseLock(lockKey, token)

	if err := g.chain.RunPre(ctx, ev); err != nil {
		return nil, err
	}

	resp, err := g.generate(ctx, ev)
	if err != nil {
		logger.Error("answer generation failed", "error", err)
		return nil, hooks.Internal("answer generation failed", err)
	}

	if err := g.chain.RunPost(ctx, ev, resp); err != nil {
		g.recordDelivery(ctx, ev, resp, delivery.Plan{}, err)
		return nil, err
	}

	plan := g.deliver(ctx, ev, resp, logger)
	g.recordDelivery(ctx, ev, resp, plan, nil)
	g.updateThreadState(ev, resp)

	return resp, nil
}

// generate queries the answer engine with the thread's chat history and
// routes the result into a response.
func (g *ChannelGateway) generate(ctx context.Context, ev *event.InboundEvent) (*event.OutgoingResponse, error) {
	result, err := g.answerer.Query(ctx, answer.QueryRequest{
		Question:      ev.Text,
		ChatHistory:   g.chatHistory(ev),
		DetectionHint: ev.Metadata[metadataDetectedVersion],
	})
	if err != nil {
		return nil, err
	}

	decision := g.router.Route(result.Confidence)
	decision.Reason = routing.Reason(
		result.Confidence,
		decision.Action,
		len(result.Sources),
		result.DetectedVersion,
		result.VersionConfidence,
	)

	return &event.OutgoingResponse{
		MessageID:     uuid.NewString(),
		InReplyTo:     ev.EventID,
		Answer:        result.Answer,
		Sources:       result.Sources,
		Confidence:    result.Confidence,
		Routing:       decision,
		RequiresHuman: decision.Action == event.ActionNeedsHuman,
	}, nil
}

// deliver sends the response when routing allows it and a channel adapter
// is registered. A delivery failure never fails the pipeline; the response
// stays queued for review.
func (g *ChannelGateway) deliver(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse, logger *slog.Logger) delivery.Plan {
	if !resp.Routing.SendImmediately {
		logger.Info("response held for review",
			"action", resp.Routing.Action,
			"priority", resp.Routing.Priority,
		)
		return delivery.Plan{}
	}

	channel, ok := g.channels[ev.ChannelID]
	if !ok {
		logger.Warn("no channel adapter registered, holding response")
		return delivery.Plan{}
	}

	plan := delivery.PlanDelivery(channel, resp)
	if err := delivery.Dispatch(ctx, channel, ev.ThreadID, resp, plan); err != nil {
		logger.Error("delivery failed", "mode", plan.Mode, "error", err)
	} else {
		logger.Info("response delivered", "mode", plan.Mode)
	}
	return plan
}

// chatHistory reads the prior turns cached in thread state.
func (g *ChannelGateway) chatHistory(ev *event.InboundEvent) []answer.Turn {
	state, ok := g.coordination.GetThreadState(coordination.ThreadStateKey(ev.ChannelID, ev.ThreadID))
	if !ok {
		return nil
	}
	raw, ok := state["history"].([]answer.Turn)
	if !ok {
		return nil
	}
	return raw
}

// updateThreadState appends this exchange to the thread's rolling history.
func (g *ChannelGateway) updateThreadState(ev *event.InboundEvent, resp *event.OutgoingResponse) {
	history := append(g.chatHistory(ev),
		answer.Turn{Role: "user", Content: ev.Text},
		answer.Turn{Role: "assistant", Content: resp.Answer},
	)
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	g.coordination.SetThreadState(
		coordination.ThreadStateKey(ev.ChannelID, ev.ThreadID),
		map[string]any{
			"history":       history,
			"last_event_id": ev.EventID,
		},
		g.ttls.ThreadState,
	)
}

// recordDelivery writes the audit row for one processed event. Ledger
// failures are logged, never surfaced.
func (g *ChannelGateway) recordDelivery(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse, plan delivery.Plan, blockErr error) {
	if g.audit == nil {
		return
	}

	d := &store.Delivery{
		EventID:      ev.EventID,
		ChannelID:    ev.ChannelID,
		ThreadID:     ev.ThreadID,
		UserID:       ev.UserID,
		Action:       string(resp.Routing.Action),
		Confidence:   resp.Confidence,
		DeliveryMode: string(plan.Mode),
		PlanReason:   plan.Reason,
	}
	if blockErr != nil {
		d.Blocked = true
		d.BlockCode = string(hooks.CodeOf(blockErr))
	}

	if err := g.audit.SaveDelivery(ctx, d); err != nil {
		g.logger.Error("audit write failed", "event_id", ev.EventID, "error", err)
	}
}

// Close releases gateway resources. The coordination store has no close;
// the audit ledger does.
func (g *ChannelGateway) Close() error {
	if g.audit == nil {
		return nil
	}
	if err := g.audit.Close(); err != nil {
		return fmt.Errorf("closing audit store: %w", err)
	}
	return nil
}
