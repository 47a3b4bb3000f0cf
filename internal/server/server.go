// Package server exposes the session engine, completion tracker, and
// progress aggregator over a JSON REST API. All rendering happens in the
// client; handlers here only move state.
package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine  *session.Engine
	catalog *program.Catalog
	history *history.Repository
	tracker *progress.Tracker
	store   store.Store
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(engine *session.Engine, catalog *program.Catalog, hist *history.Repository, tracker *progress.Tracker, kv store.Store, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		engine:  engine,
		catalog: catalog,
		history: hist,
		tracker: tracker,
		store:   kv,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Session mutations (API key required)
	s.router.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/resume", s.handleResume)
			r.Post("/start", s.handleStart)
			r.Post("/finish", s.handleFinish)
			r.Post("/cancel", s.handleCancel)
			r.Put("/exercises/{ex}/sets/{set}", s.handleUpdateSet)
			r.Post("/exercises/{ex}/sets/{set}/log", s.handleLogSet)
			r.Post("/exercises/{ex}/sets/{set}/edit", s.handleEditSet)
			r.Post("/exercises/{ex}/toggle", s.handleToggleExpanded)
		})
	})

	// Read-only derived data (no auth — tsnet handles access)
	s.router.Get("/api/v1/program/weeks", s.handleProgramWeeks)
	s.router.Get("/api/v1/program/day", s.handleProgramDay)
	s.router.Get("/api/v1/history", s.handleHistory)
	s.router.Get("/api/v1/completion", s.handleCompletion)
	s.router.Get("/api/v1/progress", s.handleProgress)

	// UI state keys
	s.router.Get("/api/v1/state/current-week", s.handleGetCurrentWeek)
	s.router.Put("/api/v1/state/current-week", s.handleSetCurrentWeek)
	s.router.Get("/api/v1/state/active-tab", s.handleGetActiveTab)
	s.router.Put("/api/v1/state/active-tab", s.handleSetActiveTab)
}
