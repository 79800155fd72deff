package analyzer

import "fmt"

// Stage identifies a phase of an analysis run.
type Stage string

const (
	StageConfig    Stage = "project config"
	StageScan      Stage = "scan"
	StageExtract   Stage = "extract"
	StageAutoloads Stage = "autoloads"
	StageAssemble  Stage = "assemble"
)

// ProgressStatus is the state of one unit of work within a stage.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent reports the state of one unit of work within a stage. Path
// is set for per-file events and empty for stage-level ones.
type ProgressEvent struct {
	Stage   Stage
	Path    string
	Status  ProgressStatus
	Message string
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	label := event.Path
	if label == "" {
		label = string(event.Stage)
	}
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", label)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", label)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", label)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", label, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", label)
	}
}
