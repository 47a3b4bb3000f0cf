package mcp

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/claude/liftlog/internal/history"
	"github.com/claude/liftlog/internal/progress"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, err := h.ds.ActiveSession(ctx)
	if err != nil {
		h.log.Error("mcp get_active_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"session": s})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.ds.History(ctx)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if exercise := req.GetString("exercise", ""); exercise != "" {
		filtered := records[:0:0]
		for _, rec := range records {
			for _, ex := range rec.Exercises {
				if ex.Name == exercise {
					filtered = append(filtered, rec)
					break
				}
			}
		}
		records = filtered
	}

	result, err := mcp.NewToolResultJSON(records)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	records, err := h.ds.History(ctx)
	if err != nil {
		h.log.Error("mcp get_exercise_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	series, ok := progress.BuildSeries(records)[exercise]
	if !ok {
		return mcp.NewToolResultError("no recorded history for " + exercise), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"series":  series,
		"summary": progress.Summarize(series),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCompletion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	week, err := req.RequireInt("week")
	if err != nil {
		return mcp.NewToolResultError("week parameter is required"), nil
	}

	stats, err := h.ds.WeekCompletion(ctx, week)
	if err != nil {
		h.log.Error("mcp get_completion", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.ds.History(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(exerciseList(records))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// exerciseList builds a name-sorted list of exercises with session counts.
func exerciseList(records []history.Record) []map[string]any {
	series := progress.BuildSeries(records)
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]any{"name": name, "sessions": len(series[name])})
	}
	return out
}

// --- Resource handlers ---

func (h *handlers) progressSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.ds.History(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]progress.Summary)
	for name, series := range progress.BuildSeries(records) {
		summaries[name] = progress.Summarize(series)
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
