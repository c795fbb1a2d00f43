// ABOUTME: Tests for the HTTP answer engine client.
// ABOUTME: Uses httptest servers to cover success, hint-rejection retry, and failures.

package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how do I export?", req.Question)

		json.NewEncoder(w).Encode(Result{
			Answer:     "Use the export button.",
			Confidence: 0.91,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	result, err := client.Query(context.Background(), QueryRequest{Question: "how do I export?"})

	require.NoError(t, err)
	assert.Equal(t, "Use the export button.", result.Answer)
	assert.InDelta(t, 0.91, result.Confidence, 1e-9)
}

func TestClient_RetriesOnceWithoutHint(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls = append(calls, req.DetectionHint)

		// Old engine: rejects any request carrying a detection hint.
		if req.DetectionHint != "" {
			http.Error(w, "unknown field detection_hint", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(Result{Answer: "ok", Confidence: 0.8})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	result, err := client.Query(context.Background(), QueryRequest{
		Question:      "q",
		DetectionHint: "v2.4",
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Answer)
	assert.Equal(t, []string{"v2.4", ""}, calls)
}

func TestClient_NoRetryWithoutHint(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	_, err := client.Query(context.Background(), QueryRequest{Question: "q"})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, nil)
	_, err := client.Query(context.Background(), QueryRequest{Question: "q"})
	assert.ErrorContains(t, err, "503")
}

func TestClient_ContextTimeoutSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(srv.URL, nil, nil)
	_, err := client.Query(ctx, QueryRequest{Question: "q"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
