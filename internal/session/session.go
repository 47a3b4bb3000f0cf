// Package session implements the workout session engine: the lifecycle of
// the single in-progress workout, the per-set logging state machine, the
// elapsed-time ticker, and finish/cancel semantics. Every mutation is
// written through to the store so a restart resumes the session exactly.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/program"
)

var (
	// ErrNoActiveSession is returned by operations that require an
	// in-progress workout when none exists.
	ErrNoActiveSession = errors.New("session: no active session")

	// ErrIncompleteSet is returned when logging a set whose weight or reps
	// are missing or not positive. Nothing is mutated.
	ErrIncompleteSet = errors.New("session: set needs weight and reps before logging")

	// ErrSetLogged is returned when editing input on a logged set; logged
	// rows are immutable until explicitly re-opened.
	ErrSetLogged = errors.New("session: set is logged; re-open it first")

	// ErrIndexOutOfRange is returned for exercise/set indices outside the
	// active session.
	ErrIndexOutOfRange = errors.New("session: index out of range")
)

// ConfirmationRequiredError signals that finishing or cancelling needs an
// explicit user confirmation before proceeding. For finish it carries the
// completion counts so the prompt can show them.
type ConfirmationRequiredError struct {
	CompletedCount int `json:"completedCount"`
	TotalCount     int `json:"totalCount"`
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("session: confirmation required (%d/%d exercises complete)", e.CompletedCount, e.TotalCount)
}

// Selection identifies a program slot the user picked to train.
type Selection struct {
	Week    int    `json:"week"`
	DayType string `json:"dayType"`
}

// LoggedSet is one set row of an in-progress exercise. Weight and reps are
// nil while empty; Logged flips only when both are present and positive.
type LoggedSet struct {
	SetNumber int      `json:"setNumber"`
	Weight    *float64 `json:"weight,omitempty"`
	Reps      *int     `json:"reps,omitempty"`
	Logged    bool     `json:"logged"`
}

// ExerciseProgress wraps one program template with its logging state.
// Completed is recomputed from Sets on every mutation, never cached across
// them.
type ExerciseProgress struct {
	Template  program.ExerciseTemplate `json:"template"`
	Completed bool                     `json:"completed"`
	Expanded  bool                     `json:"expanded"`
	Sets      []LoggedSet              `json:"sets"`
}

func (e *ExerciseProgress) recompute() {
	for _, s := range e.Sets {
		if !s.Logged {
			e.Completed = false
			return
		}
	}
	e.Completed = len(e.Sets) > 0
}

// ActiveSession is the single in-progress workout. At most one exists
// process-wide; it is owned exclusively by the Engine.
type ActiveSession struct {
	Week           int                `json:"week"`
	DayType        string             `json:"dayType"`
	StartedAt      time.Time          `json:"startedAt"`
	ElapsedSeconds int                `json:"elapsedSeconds"`
	Exercises      []ExerciseProgress `json:"exercises"`
}

// clone returns a deep copy safe to hand to callers.
func (s *ActiveSession) clone() *ActiveSession {
	cp := *s
	cp.Exercises = make([]ExerciseProgress, len(s.Exercises))
	for i, ex := range s.Exercises {
		exCp := ex
		exCp.Sets = make([]LoggedSet, len(ex.Sets))
		for j, set := range ex.Sets {
			setCp := set
			if set.Weight != nil {
				w := *set.Weight
				setCp.Weight = &w
			}
			if set.Reps != nil {
				r := *set.Reps
				setCp.Reps = &r
			}
			exCp.Sets[j] = setCp
		}
		cp.Exercises[i] = exCp
	}
	return &cp
}

// Summary reports exercise completion counts at finish time.
type Summary struct {
	CompletedCount int `json:"completedCount"`
	TotalCount     int `json:"totalCount"`
}

func (s *ActiveSession) summary() Summary {
	sum := Summary{TotalCount: len(s.Exercises)}
	for _, ex := range s.Exercises {
		if ex.Completed {
			sum.CompletedCount++
		}
	}
	return sum
}
