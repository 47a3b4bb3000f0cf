// Package mcp exposes the training log to AI assistants over the Model
// Context Protocol: workout history, strength progress, completion state,
// and the in-progress session, all read-only.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength-training tracker. Query the workout history, per-exercise strength progress, program completion state, and the current in-progress session. All data is read-only; workouts are logged through the app itself."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolGetExerciseProgress, Handler: h.getExerciseProgress},
		server.ServerTool{Tool: toolGetCompletion, Handler: h.getCompletion},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
	)

	s.AddResources(
		server.ServerResource{Resource: resProgressSummary, Handler: h.progressSummary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resProgressSummary = mcp.NewResource(
	"liftlog://progress_summary",
	"Progress Summary",
	mcp.WithResourceDescription("Per-exercise strength progress: starting weight, current weight, personal record, and gain across all recorded workouts"),
	mcp.WithMIMEType("application/json"),
)

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Get the in-progress workout session, if any: exercises, logged sets, and elapsed time. Returns null when no workout is in progress."),
)

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("List completed workouts in chronological order, each with its week, day type, completion time, and logged sets per exercise."),
	mcp.WithString("exercise", mcp.Description("Only return workouts containing this exercise (exact name, e.g. 'Bench Press')")),
)

var toolGetExerciseProgress = mcp.NewTool("get_exercise_progress",
	mcp.WithDescription("Strength-progress time series and summary for one exercise: per-session max weight and total volume, starting/current/PR weight and percent gain."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (exact, e.g. 'Squat')")),
)

var toolGetCompletion = mcp.NewTool("get_completion",
	mcp.WithDescription("Completion statistics for one program week: how many of its training days are done and the completion percentage."),
	mcp.WithNumber("week", mcp.Required(), mcp.Description("Program week number")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List all exercises with recorded history, with session counts."),
)
