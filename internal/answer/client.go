// ABOUTME: HTTP JSON client for the answer-generation service.
// ABOUTME: Retries exactly once without the detection hint when an older engine rejects it.

package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Client calls a remote answer engine over HTTP. The engine accepts a
// QueryRequest as JSON on POST {baseURL}/query and returns a Result.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the engine at baseURL. A nil httpClient
// uses http.DefaultClient; deadlines come from the caller's context.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger.With("component", "answer-client"),
	}
}

// Query implements Answerer. If the engine rejects a request carrying a
// detection hint with a client error, the call is retried once without the
// hint so older engines keep working.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*Result, error) {
	result, err := c.post(ctx, req)
	if err == nil || req.DetectionHint == "" {
		return result, err
	}

	var rejection *requestRejectedError
	if !errors.As(err, &rejection) {
		return nil, err
	}

	c.logger.Debug("engine rejected detection hint, retrying without it",
		"status", rejection.status)
	req.DetectionHint = ""
	return c.post(ctx, req)
}

// requestRejectedError marks a 4xx response, the signal that the engine
// did not understand the request shape.
type requestRejectedError struct {
	status int
	body   string
}

func (e *requestRejectedError) Error() string {
	return fmt.Sprintf("answer engine rejected request: status %d: %s", e.status, e.body)
}

func (c *Client) post(ctx context.Context, req QueryRequest) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("querying answer engine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading engine response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &requestRejectedError{status: resp.StatusCode, body: truncate(string(body), 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("answer engine returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding engine response: %w", err)
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
