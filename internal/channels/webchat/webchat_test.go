// ABOUTME: Tests for the webchat webhook adapter.
// ABOUTME: Uses httptest to capture posted payloads and rendered HTML.

package webchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/answer-gateway/internal/delivery"
	"github.com/2389/answer-gateway/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSendPostsRenderedMessage(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := New(srv.URL, testLogger())
	err := ch.Send(context.Background(), "room-7", &event.OutgoingResponse{
		MessageID: "msg-1",
		InReplyTo: "evt-1",
		Answer:    "Use **WAL mode** for concurrent readers.",
		Sources: []event.SourceRef{
			{Title: "SQLite docs", URL: "https://sqlite.org/wal.html", Score: 0.92},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "room-7", got.Target)
	assert.Equal(t, "msg-1", got.MessageID)
	assert.Equal(t, "evt-1", got.InReplyTo)
	assert.Equal(t, "Use **WAL mode** for concurrent readers.", got.Text)
	assert.Contains(t, got.HTML, "<strong>WAL mode</strong>")
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "SQLite docs", got.Sources[0].Title)
}

func TestSendWebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch := New(srv.URL, testLogger())
	err := ch.Send(context.Background(), "room-7", &event.OutgoingResponse{Answer: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSendContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := New(srv.URL, testLogger())
	err := ch.Send(ctx, "room-7", &event.OutgoingResponse{Answer: "hi"})
	assert.Error(t, err)
}

func TestWebchatIsNotStreaming(t *testing.T) {
	var ch delivery.Sender = New("http://example.invalid", testLogger())
	_, ok := ch.(delivery.StreamSender)
	assert.False(t, ok)
}
