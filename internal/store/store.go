// ABOUTME: Store interface and record types for the delivery audit ledger.
// ABOUTME: Every processed event leaves a row; held responses also land in the escalation queue.

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Delivery is the audit record for one processed inbound event.
type Delivery struct {
	ID           string
	EventID      string
	ChannelID    string
	ThreadID     string
	UserID       string
	Action       string
	Confidence   float64
	DeliveryMode string
	PlanReason   string
	Blocked      bool
	BlockCode    string
	CreatedAt    time.Time
}

// Escalation is one response held for human review.
type Escalation struct {
	ID        string
	EventID   string
	ChannelID string
	ThreadID  string
	MessageID string
	Answer    string
	Reason    string
	Priority  string
	Resolved  bool
	CreatedAt time.Time
}

// Store persists the gateway's audit trail.
type Store interface {
	SaveDelivery(ctx context.Context, d *Delivery) error
	RecentDeliveries(ctx context.Context, channelID, threadID string, limit int) ([]*Delivery, error)

	SaveEscalation(ctx context.Context, e *Escalation) error
	PendingEscalations(ctx context.Context, limit int) ([]*Escalation, error)
	ResolveEscalation(ctx context.Context, id string) error

	Close() error
}
