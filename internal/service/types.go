// Package service exposes the analyzer as a long-running HTTP service:
// JSON-RPC 2.0 methods for starting and tracking analysis tasks, plus a
// per-task SSE progress stream.
package service

import (
	"time"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/status"
)

// --- Enums ---

// TaskState represents the lifecycle state of an analysis task.
type TaskState string

const (
	TaskStateUnspecified TaskState = ""
	TaskStateSubmitted   TaskState = "submitted"
	TaskStateWorking     TaskState = "working"
	TaskStateCompleted   TaskState = "completed"
	TaskStateFailed      TaskState = "failed"
	TaskStateCanceled    TaskState = "canceled"
)

// IsTerminal returns true if the task state is a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// --- Core Types ---

// AnalysisRequest is the payload of analysis/start.
type AnalysisRequest struct {
	Root            string `json:"root"`
	IncludeTextures bool   `json:"includeTextures,omitempty"`
	ExcludeAudio    bool   `json:"excludeAudio,omitempty"`
	ExcludeFonts    bool   `json:"excludeFonts,omitempty"`
	Workers         int    `json:"workers,omitempty"`
}

// Filters converts the request flags to graph filters. Textures are
// excluded unless explicitly included, mirroring the CLI default.
func (r AnalysisRequest) Filters() graph.Filters {
	return graph.Filters{
		Textures: !r.IncludeTextures,
		Audio:    r.ExcludeAudio,
		Fonts:    r.ExcludeFonts,
	}
}

// TaskStatus tracks the current state and when it changed.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Task is one tracked analysis run. Report is set once the task completes.
type Task struct {
	ID      string          `json:"id"`
	Request AnalysisRequest `json:"request"`
	Status  TaskStatus      `json:"status"`
	Report  *status.Report  `json:"report,omitempty"`
}

// --- Card ---

// Card is the self-describing manifest served at the service root.
type Card struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Methods     []string `json:"methods"`
	Streaming   bool     `json:"streaming"`
}

// DefaultCard returns the manifest for this service build.
func DefaultCard(version string) Card {
	return Card{
		Name:        "gdgraph-analysis",
		Description: "Static dependency analysis for Godot project trees",
		Version:     version,
		Methods:     []string{MethodStartAnalysis, MethodGetTask, MethodListTasks, MethodCancelTask},
		Streaming:   true,
	}
}

// --- Streaming Types ---

// StreamEvent is one frame of a task's SSE stream. Exactly one of Progress
// or Status is set.
type StreamEvent struct {
	TaskID   string                  `json:"taskId"`
	Progress *analyzer.ProgressEvent `json:"progress,omitempty"`
	Status   *TaskStatus             `json:"status,omitempty"`

	// Err is set if the stream encountered an error.
	Err error `json:"-"`
}

// --- Request / Response Types ---

// GetTaskRequest retrieves a task by ID.
type GetTaskRequest struct {
	ID string `json:"id"`
}

// ListTasksRequest queries tasks with filtering and pagination.
type ListTasksRequest struct {
	Status    string `json:"status,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ListTasksResponse is the paginated response for ListTasks.
type ListTasksResponse struct {
	Tasks         []Task `json:"tasks"`
	TotalSize     int    `json:"totalSize"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// CancelTaskRequest cancels a running task.
type CancelTaskRequest struct {
	ID string `json:"id"`
}
