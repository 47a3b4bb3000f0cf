// Package program loads the static multi-week training program definition
// and resolves (week, day type) pairs to exercise templates. The catalog is
// read-only; nothing in the rest of the system ever mutates it.
package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrDayNotFound is returned when the requested week or day type is absent
// from the catalog. Callers fall back to an empty/no-session state.
var ErrDayNotFound = errors.New("program: week/day not found")

// ExerciseTemplate is one prescribed exercise within a training day.
type ExerciseTemplate struct {
	Name          string   `json:"name"`
	Technique     string   `json:"technique,omitempty"`
	TargetSets    string   `json:"sets"`
	TargetReps    string   `json:"reps"`
	TargetRIR     string   `json:"rir,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	Substitutions []string `json:"substitutions,omitempty"`
}

// week is the on-disk shape: day type -> exercise list.
type week map[string][]ExerciseTemplate

// Catalog is the parsed program definition.
type Catalog struct {
	weeks map[int]week
}

type programFile struct {
	Weeks map[string]week `json:"weeks"`
}

// Load reads and parses a program definition file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program file: %w", err)
	}
	return Parse(data)
}

// Parse parses a JSON program definition.
func Parse(data []byte) (*Catalog, error) {
	var pf programFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing program file: %w", err)
	}
	if len(pf.Weeks) == 0 {
		return nil, fmt.Errorf("program file defines no weeks")
	}

	c := &Catalog{weeks: make(map[int]week, len(pf.Weeks))}
	for k, w := range pf.Weeks {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid week number %q: %w", k, err)
		}
		c.weeks[n] = w
	}
	return c, nil
}

// ResolveDay returns the exercise templates for the given week and day type.
func (c *Catalog) ResolveDay(weekNum int, dayType string) ([]ExerciseTemplate, error) {
	w, ok := c.weeks[weekNum]
	if !ok {
		return nil, fmt.Errorf("week %d: %w", weekNum, ErrDayNotFound)
	}
	templates, ok := w[dayType]
	if !ok {
		return nil, fmt.Errorf("week %d day %q: %w", weekNum, dayType, ErrDayNotFound)
	}
	return templates, nil
}

// AllDayTypes returns the day types defined for a week, sorted for stable
// iteration. Unknown weeks yield an empty list.
func (c *Catalog) AllDayTypes(weekNum int) []string {
	w, ok := c.weeks[weekNum]
	if !ok {
		return nil
	}
	days := make([]string, 0, len(w))
	for d := range w {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// Weeks returns all defined week numbers in ascending order.
func (c *Catalog) Weeks() []int {
	nums := make([]int, 0, len(c.weeks))
	for n := range c.weeks {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// defaultTargetSets is used when a template's set spec cannot be parsed.
// A missing or free-form spec is expected program data, not an error.
const defaultTargetSets = 2

// TargetSetCount parses a template's set spec ("3", "3-4", "3 x 8") into a
// concrete set count, taking the leading integer and defaulting to 2.
func TargetSetCount(t ExerciseTemplate) int {
	s := strings.TrimSpace(t.TargetSets)
	if s == "" {
		return defaultTargetSets
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return defaultTargetSets
	}
	return n
}
