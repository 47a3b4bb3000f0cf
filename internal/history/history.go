// Package history stores completed-workout records. The collection is
// append-only from the engine's point of view: records are never mutated or
// deleted, though finishing the same program slot twice on one calendar day
// overwrites the earlier record (at-most-one-completion-per-day-per-slot).
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/store"
)

// SetResult is one logged set within a completed workout.
type SetResult struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// ExerciseResult is one exercise within a completed workout, holding only
// the sets that were actually logged.
type ExerciseResult struct {
	Name string      `json:"name"`
	Sets []SetResult `json:"sets"`
}

// Record is one finished workout. Immutable once written.
type Record struct {
	Key         string           `json:"key"`
	Week        int              `json:"week"`
	DayType     string           `json:"dayType"`
	CompletedAt time.Time        `json:"completedAt"`
	Exercises   []ExerciseResult `json:"exercises"`
}

// RecordKey builds the storage key for a completion:
// week-<n>-<daytype lowercased, spaces stripped>-<YYYY-MM-DD>.
func RecordKey(week int, dayType string, completedAt time.Time) string {
	day := strings.ReplaceAll(strings.ToLower(dayType), " ", "")
	return fmt.Sprintf("week-%d-%s-%s", week, day, completedAt.Format("2006-01-02"))
}

// Repository reads and writes the workout history held under a single
// store key as a record-key -> Record mapping.
type Repository struct {
	store store.Store
	log   *slog.Logger
}

// NewRepository creates a history repository over the given store.
func NewRepository(s store.Store, log *slog.Logger) *Repository {
	return &Repository{store: s, log: log}
}

func (r *Repository) load(ctx context.Context) (map[string]Record, error) {
	records := make(map[string]Record)
	if _, err := store.GetJSON(ctx, r.store, r.log, store.KeyHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Append writes a record, overwriting any existing record with the same key.
func (r *Repository) Append(ctx context.Context, rec Record) error {
	records, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, exists := records[rec.Key]; exists {
		r.log.Info("overwriting same-day completion", "key", rec.Key)
	}
	records[rec.Key] = rec
	return store.SetJSON(ctx, r.store, store.KeyHistory, records)
}

// All returns every record, sorted by completion time ascending. Storage
// order is not assumed to be chronological.
func (r *Repository) All(ctx context.Context) ([]Record, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

// Get returns the record stored under the given key.
func (r *Repository) Get(ctx context.Context, key string) (Record, bool, error) {
	records, err := r.load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[key]
	return rec, ok, nil
}

// LastPerformance returns the sets from the most recent record containing
// the named exercise, scanning across all weeks and day types. Last
// performance is exercise-scoped, not day-scoped.
func (r *Repository) LastPerformance(ctx context.Context, exerciseName string) ([]SetResult, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		for _, ex := range all[i].Exercises {
			if ex.Name == exerciseName {
				return ex.Sets, nil
			}
		}
	}
	return nil, nil
}

// Import merges an exported record map into the stored history. Existing
// keys are overwritten only when overwrite is set. Returns counts of added
// and skipped records.
func (r *Repository) Import(ctx context.Context, records map[string]Record, overwrite bool) (added, skipped int, err error) {
	existing, err := r.load(ctx)
	if err != nil {
		return 0, 0, err
	}
	for key, rec := range records {
		if _, ok := existing[key]; ok && !overwrite {
			skipped++
			continue
		}
		rec.Key = key
		existing[key] = rec
		added++
	}
	if err := store.SetJSON(ctx, r.store, store.KeyHistory, existing); err != nil {
		return 0, 0, err
	}
	return added, skipped, nil
}
