package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zg0ul/portfolio/internal/project"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	baseDelay = time.Millisecond
}

func TestClient_FetchBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		assert.Equal(t, "eq.chat-server", r.URL.Query().Get("slug"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]project.Project{{ID: "1", Title: "Chat", Slug: "chat-server"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", testLogger())
	p, err := c.FetchBySlug(context.Background(), "chat-server")
	require.NoError(t, err)
	assert.Equal(t, "1", p.ID)
}

func TestClient_EmptyResultIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.ErrorIs(t, c.Delete(context.Background(), "x"), project.ErrNotFound)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":"a","title":"A","slug":"a"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	list, err := c.List(context.Background(), project.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	_, err := c.FetchBySlug(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(MaxRetries), calls.Load())
}

func TestClient_ConflictMapsToErrConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	_, err := c.Create(context.Background(), &project.Project{Title: "Dup"})
	assert.ErrorIs(t, err, project.ErrConflict)
}

func TestClient_UpdateSendsPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.42", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"title": "Renamed"}, body)
		w.Write([]byte(`[{"id":"42","title":"Renamed","slug":"x"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	title := "Renamed"
	p, err := c.Update(context.Background(), "42", project.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Title)
}

func TestClient_CreateIsNotRetried(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if posts.Add(1) == 1 {
			// The insert committed but the gateway timed out.
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key value violates unique constraint"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	_, err := c.Create(context.Background(), &project.Project{Title: "Chat server"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.NotErrorIs(t, err, project.ErrConflict)
	assert.Equal(t, int32(1), posts.Load())
}

func TestClient_NoBackoffAfterLastAttempt(t *testing.T) {
	old := baseDelay
	baseDelay = 200 * time.Millisecond
	defer func() { baseDelay = old }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	start := time.Now()
	_, err := c.Get(context.Background(), "x")
	elapsed := time.Since(start)
	require.Error(t, err)
	assert.Equal(t, int32(MaxRetries), calls.Load())
	// Two sleeps total at most 900ms; a third would push it past 1400ms.
	assert.Less(t, elapsed, 1300*time.Millisecond)
}

func TestClient_UpdateRejectsBlankFields(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"id":"42","title":"","slug":""}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", testLogger())
	empty, blank := "", "  "
	_, err := c.Update(context.Background(), "42", project.Patch{Slug: &empty})
	assert.ErrorIs(t, err, project.ErrInvalid)
	_, err = c.Update(context.Background(), "42", project.Patch{Title: &blank})
	assert.ErrorIs(t, err, project.ErrInvalid)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBackoff_Bounded(t *testing.T) {
	for attempt := range 10 {
		d := Backoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 5*time.Second+5*time.Second/2+1)
	}
}
