package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dusk-indust/gdgraph/internal/analyzer"
	"github.com/dusk-indust/gdgraph/internal/status"
)

// ErrTaskNotCancelable is returned when cancel is requested for a task that
// already reached a terminal state.
var ErrTaskNotCancelable = errors.New("task not cancelable")

// eventBuffer is the per-task stream channel capacity. Events beyond this
// are dropped rather than blocking the analyzer.
const eventBuffer = 64

// taskRun tracks one in-flight analysis: its cancel handle and its event
// stream.
type taskRun struct {
	cancel context.CancelFunc
	events chan StreamEvent
}

// Service executes analysis tasks and implements the JSON-RPC methods. One
// Service instance backs one HTTP server.
type Service struct {
	store *TaskStore
	card  Card

	mu   sync.Mutex
	runs map[string]*taskRun
}

// NewService creates a Service ready to accept tasks.
func NewService(card Card) *Service {
	return &Service{
		store: NewTaskStore(),
		card:  card,
		runs:  make(map[string]*taskRun),
	}
}

// Card returns the service manifest.
func (s *Service) Card() Card {
	return s.card
}

// StartAnalysis registers a task and launches the analysis in the
// background. The returned task is in the submitted state; callers poll
// tasks/get or subscribe to the event stream for completion.
func (s *Service) StartAnalysis(_ context.Context, req AnalysisRequest) (*Task, error) {
	if req.Root == "" {
		return nil, fmt.Errorf("root is required")
	}

	task := Task{
		ID:      NewTaskID(),
		Request: req,
		Status:  TaskStatus{State: TaskStateSubmitted, Timestamp: time.Now()},
	}
	if err := s.store.Create(task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	// The run outlives the RPC request, so it gets its own context.
	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.runs[task.ID] = &taskRun{cancel: cancel, events: make(chan StreamEvent, eventBuffer)}
	s.mu.Unlock()

	go s.run(runCtx, task.ID, req)

	return s.store.Get(task.ID)
}

// GetTask returns the current state of a task.
func (s *Service) GetTask(_ context.Context, req GetTaskRequest) (*Task, error) {
	return s.store.Get(req.ID)
}

// ListTasks returns tasks matching the filter.
func (s *Service) ListTasks(_ context.Context, req ListTasksRequest) (*ListTasksResponse, error) {
	return s.store.List(req)
}

// CancelTask cancels a running task. Tasks in a terminal state are not
// cancelable.
func (s *Service) CancelTask(_ context.Context, req CancelTaskRequest) (*Task, error) {
	task, err := s.store.Get(req.ID)
	if err != nil {
		return nil, err
	}
	if task.Status.State.IsTerminal() {
		return nil, fmt.Errorf("task %q in state %s: %w", req.ID, task.Status.State, ErrTaskNotCancelable)
	}

	s.setState(req.ID, TaskStateCanceled, "")

	s.mu.Lock()
	run, ok := s.runs[req.ID]
	s.mu.Unlock()
	if ok {
		run.cancel()
	}

	return s.store.Get(req.ID)
}

// Subscribe returns the event stream for a task. For a task that already
// finished, the returned channel carries the final status frame and is
// closed. The stream is single-consumer: concurrent subscribers to the same
// task split the events between them.
func (s *Service) Subscribe(id string) (<-chan StreamEvent, error) {
	task, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	run, ok := s.runs[id]
	s.mu.Unlock()
	if ok {
		return run.events, nil
	}

	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{TaskID: id, Status: &task.Status}
	close(ch)
	return ch, nil
}

// Shutdown cancels all in-flight runs. Their goroutines mark the tasks
// canceled as they unwind; finished tasks stay queryable.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		run.cancel()
	}
}

// run executes one analysis task end to end.
func (s *Service) run(ctx context.Context, id string, req AnalysisRequest) {
	defer s.finish(id)

	s.setState(id, TaskStateWorking, "")

	a, err := analyzer.New(analyzer.Options{
		Root:    req.Root,
		Filters: req.Filters(),
		Workers: req.Workers,
	}, func(ev analyzer.ProgressEvent) {
		s.publish(id, StreamEvent{TaskID: id, Progress: &ev})
	})

	var result *analyzer.Result
	if err == nil {
		result, err = a.Run(ctx)
	}

	switch {
	case err == nil:
		report := status.Build(result)
		_ = s.store.Update(id, func(t *Task) {
			t.Report = report
		})
		s.setState(id, TaskStateCompleted, "")
	case errors.Is(err, context.Canceled):
		s.setState(id, TaskStateCanceled, "")
	default:
		s.setState(id, TaskStateFailed, err.Error())
	}
}

// setState transitions the task unless it already reached a terminal state,
// then publishes the resulting status frame.
func (s *Service) setState(id string, state TaskState, errMsg string) {
	changed := false
	_ = s.store.Update(id, func(t *Task) {
		if t.Status.State.IsTerminal() {
			return
		}
		t.Status = TaskStatus{State: state, Error: errMsg, Timestamp: time.Now()}
		changed = true
	})
	if !changed {
		return
	}

	task, err := s.store.Get(id)
	if err != nil {
		return
	}
	s.publish(id, StreamEvent{TaskID: id, Status: &task.Status})
}

// publish sends an event to the task's stream. The send happens under the
// run lock so it can never race the channel close in finish.
func (s *Service) publish(id string, ev StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return
	}
	select {
	case run.events <- ev:
	default:
		// Drop the event if the channel is full.
	}
}

// finish releases a completed run: the stream is closed and the cancel
// handle dropped.
func (s *Service) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return
	}
	delete(s.runs, id)
	run.cancel()
	close(run.events)
}
