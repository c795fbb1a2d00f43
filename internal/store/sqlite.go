// ABOUTME: SQLite implementation of the audit Store using modernc.org/sqlite.
// ABOUTME: Schema is created on open; WAL mode keeps concurrent writers cheap.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/2389/answer-gateway/internal/event"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the audit database at path. Use
// ":memory:" for tests. Parent directories are created as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("audit store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id            TEXT PRIMARY KEY,
		event_id      TEXT NOT NULL,
		channel_id    TEXT NOT NULL,
		thread_id     TEXT NOT NULL,
		user_id       TEXT NOT NULL,
		action        TEXT NOT NULL,
		confidence    REAL NOT NULL,
		delivery_mode TEXT NOT NULL,
		plan_reason   TEXT NOT NULL,
		blocked       INTEGER NOT NULL DEFAULT 0,
		block_code    TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_thread
		ON deliveries(channel_id, thread_id, created_at);

	CREATE TABLE IF NOT EXISTS escalations (
		id         TEXT PRIMARY KEY,
		event_id   TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		thread_id  TEXT NOT NULL,
		message_id TEXT NOT NULL,
		answer     TEXT NOT NULL,
		reason     TEXT NOT NULL,
		priority   TEXT NOT NULL,
		resolved   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_escalations_pending
		ON escalations(resolved, priority, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SaveDelivery implements Store.
func (s *SQLiteStore) SaveDelivery(ctx context.Context, d *Delivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries
			(id, event_id, channel_id, thread_id, user_id, action, confidence,
			 delivery_mode, plan_reason, blocked, block_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.EventID, d.ChannelID, d.ThreadID, d.UserID, d.Action,
		d.Confidence, d.DeliveryMode, d.PlanReason, d.Blocked, d.BlockCode, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving delivery: %w", err)
	}
	return nil
}

// RecentDeliveries implements Store, newest first.
func (s *SQLiteStore) RecentDeliveries(ctx context.Context, channelID, threadID string, limit int) ([]*Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, channel_id, thread_id, user_id, action, confidence,
		       delivery_mode, plan_reason, blocked, block_code, created_at
		FROM deliveries
		WHERE channel_id = ? AND thread_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		channelID, threadID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.EventID, &d.ChannelID, &d.ThreadID, &d.UserID,
			&d.Action, &d.Confidence, &d.DeliveryMode, &d.PlanReason,
			&d.Blocked, &d.BlockCode, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery: %w", err)
		}
		deliveries = append(deliveries, &d)
	}
	return deliveries, rows.Err()
}

// SaveEscalation implements Store.
func (s *SQLiteStore) SaveEscalation(ctx context.Context, e *Escalation) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalations
			(id, event_id, channel_id, thread_id, message_id, answer, reason, priority, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EventID, e.ChannelID, e.ThreadID, e.MessageID,
		e.Answer, e.Reason, e.Priority, e.Resolved, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving escalation: %w", err)
	}
	return nil
}

// PendingEscalations implements Store: unresolved rows, high priority
// first, oldest first within a priority.
func (s *SQLiteStore) PendingEscalations(ctx context.Context, limit int) ([]*Escalation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, channel_id, thread_id, message_id, answer, reason, priority, resolved, created_at
		FROM escalations
		WHERE resolved = 0
		ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*Escalation
	for rows.Next() {
		var e Escalation
		if err := rows.Scan(&e.ID, &e.EventID, &e.ChannelID, &e.ThreadID, &e.MessageID,
			&e.Answer, &e.Reason, &e.Priority, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning escalation: %w", err)
		}
		escalations = append(escalations, &e)
	}
	return escalations, rows.Err()
}

// ResolveEscalation implements Store.
func (s *SQLiteStore) ResolveEscalation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE escalations SET resolved = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("resolving escalation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving escalation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordEscalation satisfies the escalation-record hook's recorder
// contract, mapping a held response onto an escalation row.
func (s *SQLiteStore) RecordEscalation(ctx context.Context, ev *event.InboundEvent, resp *event.OutgoingResponse) error {
	return s.SaveEscalation(ctx, &Escalation{
		EventID:   ev.EventID,
		ChannelID: ev.ChannelID,
		ThreadID:  ev.ThreadID,
		MessageID: resp.MessageID,
		Answer:    resp.Answer,
		Reason:    resp.Routing.Reason,
		Priority:  string(resp.Routing.Priority),
	})
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
