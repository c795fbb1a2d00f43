// ABOUTME: Webchat delivery adapter posting rendered answers to a webhook.
// ABOUTME: Markdown answers are rendered to HTML before delivery.

package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/answer-gateway/internal/event"
)

// Channel delivers responses to a webchat frontend via a JSON webhook.
// Webchat has no streaming transport; streamed answers are buffered
// upstream and arrive here as a single message.
type Channel struct {
	webhookURL string
	http       *http.Client
	md         goldmark.Markdown
	logger     *slog.Logger
}

// New creates a webchat channel posting to webhookURL.
func New(webhookURL string, logger *slog.Logger) *Channel {
	return &Channel{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		md:         goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:     logger.With("component", "webchat"),
	}
}

// message is the webhook payload.
type message struct {
	Target    string       `json:"target"`
	MessageID string       `json:"message_id"`
	InReplyTo string       `json:"in_reply_to,omitempty"`
	Text      string       `json:"text"`
	HTML      string       `json:"html"`
	Sources   []sourceLink `json:"sources,omitempty"`
}

type sourceLink struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Send posts resp to the webhook as a single message.
func (c *Channel) Send(ctx context.Context, target string, resp *event.OutgoingResponse) error {
	html, err := c.renderHTML(resp.Answer)
	if err != nil {
		// Fall back to the raw text rather than dropping the answer.
		c.logger.Warn("markdown render failed, sending plain text", "error", err)
		html = resp.Answer
	}

	msg := message{
		Target:    target,
		MessageID: resp.MessageID,
		InReplyTo: resp.InReplyTo,
		Text:      resp.Answer,
		HTML:      html,
	}
	for _, s := range resp.Sources {
		msg.Sources = append(msg.Sources, sourceLink{Title: s.Title, URL: s.URL})
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling webchat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webchat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webchat webhook: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return fmt.Errorf("webchat webhook returned %d: %s", httpResp.StatusCode, snippet)
	}

	c.logger.Debug("delivered webchat message", "target", target, "message_id", resp.MessageID)
	return nil
}

func (c *Channel) renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
