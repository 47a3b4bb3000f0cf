package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
)

const testAPIKey = "test-key"

const testProgram = `{
  "weeks": {
    "1": {
      "Upper": [
        {"name": "Bench Press", "sets": "2", "reps": "8"},
        {"name": "Barbell Row", "sets": "2", "reps": "8"}
      ]
    }
  }
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := program.Parse([]byte(testProgram))
	if err != nil {
		t.Fatal(err)
	}
	kv := store.NewMemory()
	hist := history.NewRepository(kv, log)
	engine := session.NewEngine(catalog, hist, kv, log)
	t.Cleanup(engine.Close)
	tracker := progress.NewTracker(catalog, hist)
	return New(engine, catalog, hist, tracker, kv, testAPIKey, log)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

func startSession(t *testing.T, s *Server) {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/start", map[string]any{"week": 1, "dayType": "Upper"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
}

// enterAndLog fills weight/reps on a set and logs it through the API.
func enterAndLog(t *testing.T, s *Server, ex, set int, weight float64, reps int) {
	t.Helper()
	path := fmt.Sprintf("/api/v1/session/exercises/%d/sets/%d", ex, set)
	rec := doJSON(t, s, http.MethodPut, path, map[string]any{"weight": weight, "reps": reps}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, s, http.MethodPost, path+"/log", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("log status = %d, body %s", rec.Code, rec.Body)
	}
}

// TestSessionMutationsRequireAPIKey verifies that mutating session routes
// reject requests without the X-API-Key header.
func TestSessionMutationsRequireAPIKey(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/start", map[string]any{"week": 1, "dayType": "Upper"}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestGetSessionEmpty verifies the empty state: a null session, not an error.
func TestGetSessionEmpty(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/session/", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Session *session.ActiveSession `json:"session"`
	}
	decode(t, rec, &body)
	if body.Session != nil {
		t.Errorf("session = %+v, want nil", body.Session)
	}
}

// TestStartUnknownDayReturns404 verifies the catalog-miss fallback.
func TestStartUnknownDayReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/start", map[string]any{"week": 9, "dayType": "Upper"}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestStartAndLogFlow verifies the happy path through start, update, log
// and the completion invariant as seen over the API.
func TestStartAndLogFlow(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)
	enterAndLog(t, s, 0, 0, 100, 8)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/session/", nil, false)
	var body struct {
		Session *session.ActiveSession `json:"session"`
	}
	decode(t, rec, &body)
	ex := body.Session.Exercises[0]
	if !ex.Sets[0].Logged {
		t.Error("set 0 not logged")
	}
	if ex.Completed {
		t.Error("exercise completed with one of two sets logged")
	}
}

// TestLogSetIncompleteInputReturns422 verifies the user-facing validation
// error for a set with no entered values.
func TestLogSetIncompleteInputReturns422(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/exercises/0/sets/0/log", nil, true)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body)
	}
}

// TestFinishConfirmationFlow verifies the 409 confirmation gate and the
// confirmed finish writing history.
func TestFinishConfirmationFlow(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)
	enterAndLog(t, s, 0, 0, 100, 8)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/finish", map[string]any{"confirm": false}, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unconfirmed finish status = %d, want 409, body %s", rec.Code, rec.Body)
	}
	var gate struct {
		CompletedCount int `json:"completedCount"`
		TotalCount     int `json:"totalCount"`
	}
	decode(t, rec, &gate)
	if gate.CompletedCount != 0 || gate.TotalCount != 2 {
		t.Errorf("gate counts = %d/%d, want 0/2", gate.CompletedCount, gate.TotalCount)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/session/finish", map[string]any{"confirm": true}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed finish status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/history", nil, false)
	var hist struct {
		Records []history.Record `json:"records"`
	}
	decode(t, rec, &hist)
	if len(hist.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(hist.Records))
	}
	if len(hist.Records[0].Exercises[0].Sets) != 1 {
		t.Errorf("persisted sets = %d, want only the logged one", len(hist.Records[0].Exercises[0].Sets))
	}
}

// TestCancelFlow verifies cancel's confirmation no-op and that no history
// is written on confirmed cancel.
func TestCancelFlow(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/cancel", map[string]any{"confirm": false}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/session/", nil, false)
	var body struct {
		Session *session.ActiveSession `json:"session"`
	}
	decode(t, rec, &body)
	if body.Session == nil {
		t.Fatal("unconfirmed cancel discarded session")
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/session/cancel", map[string]any{"confirm": true}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/history", nil, false)
	var hist struct {
		Records []history.Record `json:"records"`
	}
	decode(t, rec, &hist)
	if len(hist.Records) != 0 {
		t.Errorf("records = %d after cancel, want 0", len(hist.Records))
	}
}

// TestCompletionEndpoint verifies week stats over the API after a finish.
func TestCompletionEndpoint(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)
	enterAndLog(t, s, 0, 0, 100, 8)
	enterAndLog(t, s, 0, 1, 95, 8)
	enterAndLog(t, s, 1, 0, 60, 8)
	enterAndLog(t, s, 1, 1, 60, 8)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/session/finish", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/completion?week=1", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Stats progress.WeekStats             `json:"stats"`
		Days  map[string]progress.Completion `json:"days"`
	}
	decode(t, rec, &body)
	if body.Stats.Total != 1 || body.Stats.Completed != 1 || body.Stats.Percentage != 100 {
		t.Errorf("stats = %+v, want {1 1 100}", body.Stats)
	}
	if !body.Days["Upper"].Completed {
		t.Error("Upper day not marked completed")
	}
}

// TestProgressEndpoint verifies the per-exercise series and summary shape.
func TestProgressEndpoint(t *testing.T) {
	s := newTestServer(t)
	startSession(t, s)
	enterAndLog(t, s, 0, 0, 100, 8)
	enterAndLog(t, s, 0, 1, 95, 8)
	enterAndLog(t, s, 1, 0, 60, 8)
	enterAndLog(t, s, 1, 1, 60, 8)
	if rec := doJSON(t, s, http.MethodPost, "/api/v1/session/finish", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/v1/progress", nil, false)
	var body struct {
		Exercises map[string]struct {
			Series  progress.Series  `json:"series"`
			Summary progress.Summary `json:"summary"`
		} `json:"exercises"`
	}
	decode(t, rec, &body)
	bench, ok := body.Exercises["Bench Press"]
	if !ok {
		t.Fatalf("Bench Press missing from progress: %+v", body.Exercises)
	}
	if bench.Summary.PersonalRecord != 100 {
		t.Errorf("PR = %v, want 100", bench.Summary.PersonalRecord)
	}
	if bench.Summary.Sessions != 1 {
		t.Errorf("sessions = %d, want 1", bench.Summary.Sessions)
	}
}

// TestUIStateRoundTrip verifies the current-week and active-tab key
// endpoints, including the missing-key default.
func TestUIStateRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/state/current-week", nil, false)
	var wk struct {
		Week int `json:"week"`
	}
	decode(t, rec, &wk)
	if wk.Week != 0 {
		t.Errorf("default week = %d, want 0", wk.Week)
	}

	doJSON(t, s, http.MethodPut, "/api/v1/state/current-week", map[string]int{"week": 3}, false)
	rec = doJSON(t, s, http.MethodGet, "/api/v1/state/current-week", nil, false)
	decode(t, rec, &wk)
	if wk.Week != 3 {
		t.Errorf("week = %d, want 3", wk.Week)
	}

	doJSON(t, s, http.MethodPut, "/api/v1/state/active-tab", map[string]string{"tab": "progress"}, false)
	rec = doJSON(t, s, http.MethodGet, "/api/v1/state/active-tab", nil, false)
	var tab struct {
		Tab string `json:"tab"`
	}
	decode(t, rec, &tab)
	if tab.Tab != "progress" {
		t.Errorf("tab = %q, want %q", tab.Tab, "progress")
	}
}

// TestProgramEndpoints verifies week listing and day resolution.
func TestProgramEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/program/weeks", nil, false)
	var weeks struct {
		Weeks []int `json:"weeks"`
	}
	decode(t, rec, &weeks)
	if len(weeks.Weeks) != 1 || weeks.Weeks[0] != 1 {
		t.Errorf("weeks = %v, want [1]", weeks.Weeks)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/program/day?week=1&day=Upper", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var day struct {
		Exercises []program.ExerciseTemplate `json:"exercises"`
	}
	decode(t, rec, &day)
	if len(day.Exercises) != 2 {
		t.Errorf("exercises = %d, want 2", len(day.Exercises))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/program/day?week=2&day=Upper", nil, false)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
