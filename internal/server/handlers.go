package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine and catalog errors onto HTTP statuses. All
// of these are recoverable conditions the client is expected to handle.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var confirm *session.ConfirmationRequiredError
	switch {
	case errors.As(err, &confirm):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          "confirmation required",
			"completedCount": confirm.CompletedCount,
			"totalCount":     confirm.TotalCount,
		})
	case errors.Is(err, session.ErrNoActiveSession), errors.Is(err, program.ErrDayNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrIncompleteSet):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrSetLogged):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrIndexOutOfRange):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		s.log.Error("handler error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func indexParams(r *http.Request) (exIdx, setIdx int, err error) {
	exIdx, err = strconv.Atoi(chi.URLParam(r, "ex"))
	if err != nil {
		return 0, 0, err
	}
	if setParam := chi.URLParam(r, "set"); setParam != "" {
		setIdx, err = strconv.Atoi(setParam)
		if err != nil {
			return 0, 0, err
		}
	}
	return exIdx, setIdx, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session": s.engine.Snapshot()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var body session.Selection
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}

	var pending *session.Selection
	if body.Week != 0 && body.DayType != "" {
		pending = &body
	}

	snap, err := s.engine.ResumeOrStart(r.Context(), pending)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": snap})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body session.Selection
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	snap, err := s.engine.StartNew(r.Context(), body.Week, body.DayType)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": snap})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	exIdx, setIdx, err := indexParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	var body struct {
		Weight *float64 `json:"weight"`
		Reps   *int     `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if err := s.engine.UpdateSet(r.Context(), exIdx, setIdx, body.Weight, body.Reps); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s.engine.Snapshot()})
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	exIdx, setIdx, err := indexParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	if err := s.engine.LogSet(r.Context(), exIdx, setIdx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s.engine.Snapshot()})
}

func (s *Server) handleEditSet(w http.ResponseWriter, r *http.Request) {
	exIdx, setIdx, err := indexParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	if err := s.engine.EditSet(r.Context(), exIdx, setIdx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s.engine.Snapshot()})
}

func (s *Server) handleToggleExpanded(w http.ResponseWriter, r *http.Request) {
	exIdx, _, err := indexParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}

	if err := s.engine.ToggleExpanded(r.Context(), exIdx); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": s.engine.Snapshot()})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}

	sum, err := s.engine.Finish(r.Context(), body.Confirm)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}

	if err := s.engine.Cancel(r.Context(), body.Confirm); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": body.Confirm})
}

func (s *Server) handleProgramWeeks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"weeks": s.catalog.Weeks()})
}

func (s *Server) handleProgramDay(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "week parameter required"})
		return
	}
	day := r.URL.Query().Get("day")
	if day == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day parameter required"})
		return
	}

	templates, err := s.catalog.ResolveDay(week, day)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exercises": templates})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.All(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "week parameter required"})
		return
	}

	stats, err := s.tracker.WeekCompletionStats(r.Context(), week)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	days := make(map[string]progress.Completion)
	for _, day := range s.catalog.AllDayTypes(week) {
		c, err := s.tracker.IsCompleted(r.Context(), week, day)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		days[day] = c
	}

	writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "days": days})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.All(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	type exerciseProgress struct {
		Series  progress.Series  `json:"series"`
		Summary progress.Summary `json:"summary"`
	}

	series := progress.BuildSeries(records)
	out := make(map[string]exerciseProgress, len(series))
	for name, ser := range series {
		out[name] = exerciseProgress{Series: ser, Summary: progress.Summarize(ser)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exercises": out})
}

func (s *Server) handleGetCurrentWeek(w http.ResponseWriter, r *http.Request) {
	var week int
	if _, err := store.GetJSON(r.Context(), s.store, s.log, store.KeyCurrentWeek, &week); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"week": week})
}

func (s *Server) handleSetCurrentWeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Week int `json:"week"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := store.SetJSON(r.Context(), s.store, store.KeyCurrentWeek, body.Week); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"week": body.Week})
}

func (s *Server) handleGetActiveTab(w http.ResponseWriter, r *http.Request) {
	var tab string
	if _, err := store.GetJSON(r.Context(), s.store, s.log, store.KeyActiveTab, &tab); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tab": tab})
}

func (s *Server) handleSetActiveTab(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tab string `json:"tab"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := store.SetJSON(r.Context(), s.store, store.KeyActiveTab, body.Tab); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tab": body.Tab})
}
