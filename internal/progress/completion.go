package progress

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/program"
)

// Completion reports whether a program slot has at least one matching
// history record.
type Completion struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RecordKey   string     `json:"recordKey,omitempty"`
}

// WeekStats summarizes how much of a program week is done.
type WeekStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// Tracker derives completion state from the history repository and the
// program catalog. Read-only; safe to call on every UI refresh.
type Tracker struct {
	catalog *program.Catalog
	history *history.Repository
}

// NewTracker creates a completion tracker.
func NewTracker(catalog *program.Catalog, hist *history.Repository) *Tracker {
	return &Tracker{catalog: catalog, history: hist}
}

// IsCompleted scans history for a record matching the week and day type
// exactly. With multiple completions of the same slot the first match in
// chronological order is returned; callers only use the completed flag and
// timestamp, so the tie order carries no meaning.
func (t *Tracker) IsCompleted(ctx context.Context, week int, dayType string) (Completion, error) {
	records, err := t.history.All(ctx)
	if err != nil {
		return Completion{}, err
	}
	for _, rec := range records {
		if rec.Week == week && rec.DayType == dayType {
			at := rec.CompletedAt
			return Completion{Completed: true, CompletedAt: &at, RecordKey: rec.Key}, nil
		}
	}
	return Completion{}, nil
}

// WeekCompletionStats folds IsCompleted over every day type the catalog
// defines for the week. A week with no defined days reports 0%, never an
// error.
func (t *Tracker) WeekCompletionStats(ctx context.Context, week int) (WeekStats, error) {
	days := t.catalog.AllDayTypes(week)
	stats := WeekStats{Total: len(days)}
	for _, day := range days {
		c, err := t.IsCompleted(ctx, week, day)
		if err != nil {
			return WeekStats{}, err
		}
		if c.Completed {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = round(float64(stats.Completed) / float64(stats.Total) * 100)
	}
	return stats, nil
}
