// ABOUTME: Tests for the SQLite audit store using in-memory databases.
// ABOUTME: Covers delivery rows, escalation queue ordering, and resolution.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/answer-gateway/internal/event"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveDelivery_AssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)

	d := &Delivery{
		EventID:      "evt-1",
		ChannelID:    "webchat",
		ThreadID:     "thread-1",
		UserID:       "user-1",
		Action:       "auto_send",
		Confidence:   0.97,
		DeliveryMode: "single",
		PlanReason:   "no_stream_present",
	}
	require.NoError(t, s.SaveDelivery(context.Background(), d))

	assert.NotEmpty(t, d.ID)
	assert.False(t, d.CreatedAt.IsZero())
}

func TestRecentDeliveries_FiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, action := range []string{"auto_send", "queue_medium", "needs_human"} {
		require.NoError(t, s.SaveDelivery(ctx, &Delivery{
			EventID:      "evt-" + action,
			ChannelID:    "webchat",
			ThreadID:     "thread-1",
			UserID:       "user-1",
			Action:       action,
			DeliveryMode: "single",
			PlanReason:   "no_stream_present",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Different thread must not appear.
	require.NoError(t, s.SaveDelivery(ctx, &Delivery{
		EventID: "evt-other", ChannelID: "webchat", ThreadID: "thread-2",
		UserID: "user-2", Action: "auto_send", DeliveryMode: "single", PlanReason: "no_stream_present",
	}))

	got, err := s.RecentDeliveries(ctx, "webchat", "thread-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "evt-needs_human", got[0].EventID, "newest first")
	assert.Equal(t, "evt-auto_send", got[2].EventID)
}

func TestPendingEscalations_HighPriorityFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, s.SaveEscalation(ctx, &Escalation{
		EventID: "evt-1", ChannelID: "webchat", ThreadID: "t", MessageID: "m1",
		Answer: "a", Reason: "review", Priority: "normal", CreatedAt: base,
	}))
	require.NoError(t, s.SaveEscalation(ctx, &Escalation{
		EventID: "evt-2", ChannelID: "webchat", ThreadID: "t", MessageID: "m2",
		Answer: "b", Reason: "low confidence", Priority: "high", CreatedAt: base.Add(time.Minute),
	}))

	pending, err := s.PendingEscalations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "evt-2", pending[0].EventID, "high priority first despite being newer")
}

func TestResolveEscalation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &Escalation{
		EventID: "evt-1", ChannelID: "webchat", ThreadID: "t", MessageID: "m1",
		Answer: "a", Reason: "review", Priority: "normal",
	}
	require.NoError(t, s.SaveEscalation(ctx, e))

	require.NoError(t, s.ResolveEscalation(ctx, e.ID))

	pending, err := s.PendingEscalations(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, s.ResolveEscalation(ctx, "missing-id"), ErrNotFound)
}

func TestRecordEscalation_MapsResponseFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := event.New("evt-9", "webchat", "user-1", "help", map[string]string{"session_id": "sess-1"})
	resp := &event.OutgoingResponse{
		MessageID: "msg-9",
		Answer:    "try rebooting",
		Routing: event.RoutingDecision{
			Action:   event.ActionNeedsHuman,
			Priority: event.PriorityHigh,
			Reason:   "No relevant sources found (40%), needs human attention",
		},
	}
	require.NoError(t, s.RecordEscalation(ctx, ev, resp))

	pending, err := s.PendingEscalations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-9", pending[0].EventID)
	assert.Equal(t, "sess-1", pending[0].ThreadID)
	assert.Equal(t, "high", pending[0].Priority)
}
