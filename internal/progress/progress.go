// Package progress derives completion and strength-progress statistics
// from workout history. Everything here is a pure fold over the history
// records; nothing is persisted.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/history"
)

// SessionPoint is one workout's contribution to an exercise's time series.
type SessionPoint struct {
	Date        time.Time           `json:"date"`
	Week        int                 `json:"week"`
	DayType     string              `json:"dayType"`
	Sets        []history.SetResult `json:"sets"`
	MaxWeight   float64             `json:"maxWeight"`
	TotalVolume float64             `json:"totalVolume"`
}

// Series is an exercise's sessions ordered by date ascending.
type Series []SessionPoint

// BuildSeries transforms history into per-exercise time series. Exercise
// entries with no logged sets contribute nothing; an exercise absent from
// every record is simply not in the map. Record order in storage is not
// assumed chronological, so each series is sorted after accumulation.
func BuildSeries(records []history.Record) map[string]Series {
	series := make(map[string]Series)
	for _, rec := range records {
		for _, ex := range rec.Exercises {
			if len(ex.Sets) == 0 {
				continue
			}
			point := SessionPoint{
				Date:    rec.CompletedAt,
				Week:    rec.Week,
				DayType: rec.DayType,
				Sets:    ex.Sets,
			}
			for _, set := range ex.Sets {
				if set.Weight > point.MaxWeight {
					point.MaxWeight = set.Weight
				}
				point.TotalVolume += set.Weight * float64(set.Reps)
			}
			series[ex.Name] = append(series[ex.Name], point)
		}
	}
	for name := range series {
		s := series[name]
		sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		series[name] = s
	}
	return series
}

// Summary condenses a series into headline strength-progress numbers.
type Summary struct {
	StartingWeight float64 `json:"startingWeight"`
	CurrentWeight  float64 `json:"currentWeight"`
	PersonalRecord float64 `json:"personalRecord"`
	Gain           float64 `json:"gain"`
	PercentGain    float64 `json:"percentGain"`
	IsCurrentPR    bool    `json:"isCurrentPR"`
	Sessions       int     `json:"sessions"`
}

// Summarize computes summary statistics for one exercise's series.
// PercentGain is 0 when the starting weight is 0.
func Summarize(s Series) Summary {
	if len(s) == 0 {
		return Summary{}
	}
	sum := Summary{
		StartingWeight: s[0].MaxWeight,
		CurrentWeight:  s[len(s)-1].MaxWeight,
		Sessions:       len(s),
	}
	for _, p := range s {
		if p.MaxWeight > sum.PersonalRecord {
			sum.PersonalRecord = p.MaxWeight
		}
	}
	sum.Gain = sum.CurrentWeight - sum.StartingWeight
	if sum.StartingWeight != 0 {
		sum.PercentGain = sum.Gain / sum.StartingWeight * 100
	}
	sum.IsCurrentPR = sum.CurrentWeight == sum.PersonalRecord
	return sum
}

// round matches the display convention for percentages.
func round(v float64) int {
	return int(math.Round(v))
}
