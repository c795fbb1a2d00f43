// Package gateway orchestrates the answer-gateway event pipeline.
//
// # Overview
//
// The gateway package is the central coordinator of the answer-gateway
// server. It owns the coordination store, hook chain, answer engine client,
// confidence router, delivery planner, and audit ledger, and runs every
// inbound event through them in a fixed order.
//
// # Pipeline
//
// Process runs one event end to end:
//
//  1. Dedup reservation on (channel_id, event_id); duplicates are rejected
//     before any other work.
//  2. Thread lock on (channel_id, thread_id); a busy thread rejects the
//     event so the sender can retry.
//  3. Pre-hooks in priority order (auth, rate limit, PII scan, policy);
//     the first error aborts the pipeline.
//  4. Answer generation with the thread's rolling chat history.
//  5. Confidence routing into auto_send, queue_medium, or needs_human,
//     with a bounded human-readable reason.
//  6. Post-hooks (PII filter, autosend override, escalation record,
//     metrics); blocking hook errors replace the response.
//  7. Delivery planning and dispatch when routing allows immediate send.
//  8. Audit row and thread-state update.
//
// # HTTP API
//
// The Server exposes the pipeline in api.go:
//
//   - POST /api/events - Submit an inbound event, receive the response
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check (channels registered)
//   - GET /metrics - Routing metrics snapshot as JSON
//
// # Lifecycle
//
// Start the gateway:
//
//	gw, err := gateway.New(gateway.Options{...})
//	srv := gateway.NewServer(gw, addr, logger)
//	err = srv.Run(ctx)
//
// Run blocks until the context is canceled, then shuts the HTTP server
// down gracefully and closes the audit ledger.
package gateway
