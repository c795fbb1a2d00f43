// ABOUTME: HTTP ingress for channel adapters posting inbound events.
// ABOUTME: Maps pipeline rejections and taxonomy codes onto HTTP statuses.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/answer-gateway/internal/event"
	"github.com/2389/answer-gateway/internal/hooks"
)

// EventRequest is the JSON request body for POST /api/events.
type EventRequest struct {
	EventID   string            `json:"event_id"`
	ChannelID string            `json:"channel_id"`
	UserID    string            `json:"user_id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventResponse is the JSON response for a processed event.
type EventResponse struct {
	MessageID     string       `json:"message_id"`
	InReplyTo     string       `json:"in_reply_to"`
	Answer        string       `json:"answer"`
	Action        string       `json:"action"`
	Reason        string       `json:"reason"`
	RequiresHuman bool         `json:"requires_human"`
	Sources       []SourceInfo `json:"sources,omitempty"`
}

// SourceInfo is one knowledge source in an event response.
type SourceInfo struct {
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// ErrorResponse is the JSON body for a rejected or failed event.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server exposes the gateway pipeline over HTTP.
type Server struct {
	gateway    *ChannelGateway
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the HTTP server for the gateway on addr.
func NewServer(gw *ChannelGateway, addr string, logger *slog.Logger) *Server {
	s := &Server{
		gateway: gw,
		logger:  logger.With("component", "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", s.handleEvent)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or the server error.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the run context is already
// canceled by the time shutdown starts.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the gateway.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gateway")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.gateway.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleEvent handles POST /api/events.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.EventID == "" || req.ChannelID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "event_id, channel_id, and text are required")
		return
	}

	ev := event.New(req.EventID, req.ChannelID, req.UserID, req.Text, req.Metadata)
	resp, err := s.gateway.Process(r.Context(), ev)
	if err != nil {
		s.writeProcessError(w, err)
		return
	}

	out := EventResponse{
		MessageID:     resp.MessageID,
		InReplyTo:     resp.InReplyTo,
		Answer:        resp.Answer,
		Action:        string(resp.Routing.Action),
		Reason:        resp.Routing.Reason,
		RequiresHuman: resp.RequiresHuman,
	}
	for _, src := range resp.Sources {
		out.Sources = append(out.Sources, SourceInfo{Title: src.Title, URL: src.URL, Score: src.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeProcessError translates a pipeline error into an HTTP response.
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateEvent):
		writeError(w, http.StatusConflict, "duplicate_event", "event was already accepted")
		return
	case errors.Is(err, ErrThreadBusy):
		writeError(w, http.StatusConflict, "thread_busy", "an earlier event in this thread is still processing")
		return
	}

	code := hooks.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case hooks.CodeAuthenticationFailed:
		status = http.StatusUnauthorized
	case hooks.CodeRateLimitExceeded:
		status = http.StatusTooManyRequests
		var pipelineErr *hooks.Error
		if errors.As(err, &pipelineErr) && pipelineErr.RetryAfter > 0 {
			seconds := int(pipelineErr.RetryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	case hooks.CodeServiceUnavailable:
		status = http.StatusServiceUnavailable
	case hooks.CodePIIDetected:
		status = http.StatusUnprocessableEntity
	}

	writeError(w, status, string(code), err.Error())
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once at least one channel adapter is registered.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	n := len(s.gateway.channels)
	if n == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no channels registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d channels)", n)
}

// handleMetrics serves the routing metrics snapshot as JSON.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gateway.Metrics().Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
