package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
)

// newTestServer creates an httptest server that routes requests to handler
// functions keyed by path. Verifies the HTTP client hits the right paths.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestActiveSession verifies the client unwraps the session envelope.
func TestActiveSession(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/session/": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, map[string]any{
				"session": session.ActiveSession{
					Week:           2,
					DayType:        "Upper",
					ElapsedSeconds: 125,
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	s, err := client.ActiveSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("got nil session, want one")
	}
	if s.Week != 2 || s.DayType != "Upper" {
		t.Errorf("session = week %d %q, want week 2 Upper", s.Week, s.DayType)
	}
	if s.ElapsedSeconds != 125 {
		t.Errorf("elapsed = %d, want 125", s.ElapsedSeconds)
	}
}

// TestActiveSessionNone verifies a null session decodes to nil, not an error.
func TestActiveSessionNone(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/session/": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, map[string]any{"session": nil})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	s, err := client.ActiveSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Errorf("got session %+v, want nil", s)
	}
}

// TestHistory verifies the client unwraps the records envelope.
func TestHistory(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/history": func(w http.ResponseWriter, _ *http.Request) {
			writeTestJSON(t, w, map[string]any{
				"records": []history.Record{
					{
						Key:         "week-1-upper-2026-08-01",
						Week:        1,
						DayType:     "Upper",
						CompletedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
					},
				},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	records, err := client.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Key != "week-1-upper-2026-08-01" {
		t.Errorf("key = %q", records[0].Key)
	}
}

// TestWeekCompletion verifies the week query param and stats envelope.
func TestWeekCompletion(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/completion": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("week"); got != "3" {
				t.Errorf("week=%q, want 3", got)
			}
			writeTestJSON(t, w, map[string]any{
				"stats": progress.WeekStats{Total: 4, Completed: 2, Percentage: 50},
			})
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	stats, err := client.WeekCompletion(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Completed != 2 || stats.Total != 4 {
		t.Errorf("stats = %+v, want 2/4", stats)
	}
}

// TestHTTPClientServerError verifies the client returns an error on non-200 responses.
func TestHTTPClientServerError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/history": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"store unavailable"}`))
		},
	})
	defer ts.Close()

	client := NewHTTPClient(ts.URL)
	_, err := client.History(context.Background())
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
