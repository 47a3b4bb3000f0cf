package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/progress"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/store"
)

// DataSource abstracts the data layer for MCP tools. Local (store-backed)
// and HTTPClient (remote via REST API) both satisfy this interface.
type DataSource interface {
	ActiveSession(ctx context.Context) (*session.ActiveSession, error)
	History(ctx context.Context) ([]history.Record, error)
	WeekCompletion(ctx context.Context, week int) (progress.WeekStats, error)
}

// Local reads directly from the key-value store. It never owns the
// session; the snapshot it reads is whatever the engine last persisted.
type Local struct {
	store   store.Store
	history *history.Repository
	tracker *progress.Tracker
	log     *slog.Logger
}

// Compile-time checks.
var (
	_ DataSource = (*Local)(nil)
	_ DataSource = (*HTTPClient)(nil)
)

// NewLocal creates a store-backed data source.
func NewLocal(kv store.Store, catalog *program.Catalog, log *slog.Logger) *Local {
	hist := history.NewRepository(kv, log)
	return &Local{
		store:   kv,
		history: hist,
		tracker: progress.NewTracker(catalog, hist),
		log:     log,
	}
}

func (l *Local) ActiveSession(ctx context.Context) (*session.ActiveSession, error) {
	var s session.ActiveSession
	found, err := store.GetJSON(ctx, l.store, l.log, store.KeyActiveSession, &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

func (l *Local) History(ctx context.Context) ([]history.Record, error) {
	return l.history.All(ctx)
}

func (l *Local) WeekCompletion(ctx context.Context, week int) (progress.WeekStats, error) {
	return l.tracker.WeekCompletionStats(ctx, week)
}
