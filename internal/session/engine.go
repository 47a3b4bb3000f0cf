package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
	"github.com/claude/liftlog/internal/store"
)

// Engine owns the ActiveSession lifecycle. All methods are safe for
// concurrent use; every mutation holds the engine lock for its full
// read-modify-write-persist cycle, so mutations are atomic with respect to
// each other and to the ticker.
type Engine struct {
	catalog *program.Catalog
	history *history.Repository
	store   store.Store
	log     *slog.Logger

	clock     func() time.Time
	tickEvery time.Duration

	mu       sync.Mutex
	session  *ActiveSession
	timerGen int
	stopTick chan struct{}
}

// NewEngine creates an engine. No session is loaded until ResumeOrStart.
func NewEngine(catalog *program.Catalog, hist *history.Repository, s store.Store, log *slog.Logger) *Engine {
	return &Engine{
		catalog:   catalog,
		history:   hist,
		store:     s,
		log:       log,
		clock:     time.Now,
		tickEvery: time.Second,
	}
}

func (e *Engine) persist(ctx context.Context) error {
	if err := store.SetJSON(ctx, e.store, store.KeyActiveSession, e.session); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// startTimerLocked replaces any running ticker with a fresh one. The
// generation counter makes a stale ticker's in-flight tick a no-op, so a
// new session never inherits ticks from the previous one.
func (e *Engine) startTimerLocked() {
	e.stopTimerLocked()
	e.timerGen++
	gen := e.timerGen
	stop := make(chan struct{})
	e.stopTick = stop

	go func() {
		tk := time.NewTicker(e.tickEvery)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				e.tick(gen)
			}
		}
	}()
}

func (e *Engine) stopTimerLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
	e.timerGen++
}

// tick advances the elapsed counter by one second and persists it so the
// timer survives a restart. Guarded by generation so a tick racing a
// finish/cancel never touches a cleared or replaced session.
func (e *Engine) tick(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || gen != e.timerGen {
		return
	}
	e.session.ElapsedSeconds++
	if err := e.persist(context.Background()); err != nil {
		e.log.Warn("timer persist failed", "error", err)
	}
}

// ResumeOrStart restores a durable session if one exists (resuming its
// elapsed timer), otherwise starts a new workout from the pending
// selection, otherwise returns nil for the empty state.
func (e *Engine) ResumeOrStart(ctx context.Context, pending *Selection) (*ActiveSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return e.session.clone(), nil
	}

	var saved ActiveSession
	found, err := store.GetJSON(ctx, e.store, e.log, store.KeyActiveSession, &saved)
	if err != nil {
		return nil, err
	}
	if found {
		e.session = &saved
		e.startTimerLocked()
		e.log.Info("resumed session", "week", saved.Week, "day", saved.DayType, "elapsed", saved.ElapsedSeconds)
		return e.session.clone(), nil
	}

	if pending != nil {
		return e.startNewLocked(ctx, pending.Week, pending.DayType)
	}
	return nil, nil
}

// StartNew begins a workout for the given program slot, pre-filling each
// set from the most recent performance of the same exercise.
func (e *Engine) StartNew(ctx context.Context, week int, dayType string) (*ActiveSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startNewLocked(ctx, week, dayType)
}

func (e *Engine) startNewLocked(ctx context.Context, week int, dayType string) (*ActiveSession, error) {
	templates, err := e.catalog.ResolveDay(week, dayType)
	if err != nil {
		return nil, err
	}

	s := &ActiveSession{
		Week:      week,
		DayType:   dayType,
		StartedAt: e.clock(),
		Exercises: make([]ExerciseProgress, 0, len(templates)),
	}

	for _, tmpl := range templates {
		count := program.TargetSetCount(tmpl)
		last, err := e.history.LastPerformance(ctx, tmpl.Name)
		if err != nil {
			return nil, err
		}

		sets := make([]LoggedSet, count)
		for i := range sets {
			sets[i] = LoggedSet{SetNumber: i + 1}
			if i < len(last) {
				w := last[i].Weight
				r := last[i].Reps
				sets[i].Weight = &w
				sets[i].Reps = &r
			}
		}
		s.Exercises = append(s.Exercises, ExerciseProgress{Template: tmpl, Sets: sets})
	}

	e.session = s
	if err := e.persist(ctx); err != nil {
		e.session = nil
		return nil, err
	}
	e.startTimerLocked()
	e.log.Info("started workout", "week", week, "day", dayType, "exercises", len(templates))
	return s.clone(), nil
}

func (e *Engine) setAt(exIdx, setIdx int) (*ExerciseProgress, *LoggedSet, error) {
	if e.session == nil {
		return nil, nil, ErrNoActiveSession
	}
	if exIdx < 0 || exIdx >= len(e.session.Exercises) {
		return nil, nil, fmt.Errorf("exercise index %d: %w", exIdx, ErrIndexOutOfRange)
	}
	ex := &e.session.Exercises[exIdx]
	if setIdx < 0 || setIdx >= len(ex.Sets) {
		return nil, nil, fmt.Errorf("set index %d: %w", setIdx, ErrIndexOutOfRange)
	}
	return ex, &ex.Sets[setIdx], nil
}

// UpdateSet records the entered weight/reps on an unlogged set.
func (e *Engine) UpdateSet(ctx context.Context, exIdx, setIdx int, weight *float64, reps *int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, set, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}
	if set.Logged {
		return ErrSetLogged
	}
	set.Weight = weight
	set.Reps = reps
	return e.persist(ctx)
}

// LogSet marks a set as done. The set's weight and reps must both be
// present and positive; otherwise nothing changes.
func (e *Engine) LogSet(ctx context.Context, exIdx, setIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex, set, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}
	if set.Weight == nil || set.Reps == nil || *set.Weight <= 0 || *set.Reps <= 0 {
		return ErrIncompleteSet
	}
	set.Logged = true
	ex.recompute()
	return e.persist(ctx)
}

// EditSet re-opens a logged set. Editing any set always revokes the owning
// exercise's completion until the set is logged again.
func (e *Engine) EditSet(ctx context.Context, exIdx, setIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex, set, err := e.setAt(exIdx, setIdx)
	if err != nil {
		return err
	}
	set.Logged = false
	ex.Completed = false
	return e.persist(ctx)
}

// ToggleExpanded flips an exercise's UI expansion flag. Persisted only so a
// resume restores the view; no business invariant attaches to it.
func (e *Engine) ToggleExpanded(ctx context.Context, exIdx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoActiveSession
	}
	if exIdx < 0 || exIdx >= len(e.session.Exercises) {
		return fmt.Errorf("exercise index %d: %w", exIdx, ErrIndexOutOfRange)
	}
	e.session.Exercises[exIdx].Expanded = !e.session.Exercises[exIdx].Expanded
	return e.persist(ctx)
}

// Finish completes the workout. An incomplete workout (fewer exercises
// completed than total) requires confirmed=true; until then the session is
// untouched and the returned error carries the counts for the prompt. On
// success only logged sets are written to history, and the session is
// cleared. If the history write fails the session is retained so the user
// can retry without losing logged data.
func (e *Engine) Finish(ctx context.Context, confirmed bool) (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return Summary{}, ErrNoActiveSession
	}

	sum := e.session.summary()
	if sum.CompletedCount < sum.TotalCount && !confirmed {
		return sum, &ConfirmationRequiredError{CompletedCount: sum.CompletedCount, TotalCount: sum.TotalCount}
	}

	e.stopTimerLocked()

	completedAt := e.clock()
	rec := history.Record{
		Key:         history.RecordKey(e.session.Week, e.session.DayType, completedAt),
		Week:        e.session.Week,
		DayType:     e.session.DayType,
		CompletedAt: completedAt,
	}
	for _, ex := range e.session.Exercises {
		res := history.ExerciseResult{Name: ex.Template.Name}
		for _, set := range ex.Sets {
			if !set.Logged {
				continue
			}
			res.Sets = append(res.Sets, history.SetResult{Weight: *set.Weight, Reps: *set.Reps})
		}
		rec.Exercises = append(rec.Exercises, res)
	}

	if err := e.history.Append(ctx, rec); err != nil {
		e.startTimerLocked()
		return sum, fmt.Errorf("saving workout record: %w", err)
	}

	if err := e.store.Delete(ctx, store.KeyActiveSession); err != nil {
		e.log.Warn("clearing session snapshot failed", "error", err)
	}
	e.session = nil
	e.log.Info("finished workout", "key", rec.Key, "completed", sum.CompletedCount, "total", sum.TotalCount)
	return sum, nil
}

// Cancel discards the session without writing history. Unconfirmed cancel
// is a no-op: the cancel is destructive, so the gate sits in the engine.
func (e *Engine) Cancel(ctx context.Context, confirmed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoActiveSession
	}
	if !confirmed {
		return nil
	}

	e.stopTimerLocked()
	if err := e.store.Delete(ctx, store.KeyActiveSession); err != nil {
		return fmt.Errorf("discarding session: %w", err)
	}
	e.session = nil
	e.log.Info("cancelled workout")
	return nil
}

// Snapshot returns a deep copy of the active session, or nil for the empty
// state. Safe to call on every UI refresh.
func (e *Engine) Snapshot() *ActiveSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	return e.session.clone()
}

// Close stops the ticker. The session snapshot stays in the store so the
// next process resumes it.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimerLocked()
}
