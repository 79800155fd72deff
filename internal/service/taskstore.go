package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/gdgraph/internal/graph"
	"github.com/dusk-indust/gdgraph/internal/status"
)

// ErrTaskNotFound is returned by lookups for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// NewTaskID generates a UUID v4 string.
func NewTaskID() string {
	return uuid.NewString()
}

// TaskStore is a concurrency-safe in-memory store for task tracking.
// Tasks are stored in a map keyed by ID with a separate slice maintaining
// insertion order for deterministic pagination.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	orderIDs []string // insertion-order task IDs
}

// NewTaskStore returns an initialized TaskStore ready for use.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:    make(map[string]*Task),
		orderIDs: make([]string, 0),
	}
}

// Create stores a new task. It returns an error if a task with the same ID
// already exists.
func (s *TaskStore) Create(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %q already exists", task.ID)
	}
	s.tasks[task.ID] = &task
	s.orderIDs = append(s.orderIDs, task.ID)
	return nil
}

// Get returns a deep copy of the task with the given ID. The returned copy
// is safe to mutate without affecting the store.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, ErrTaskNotFound)
	}
	return deepCopyTask(t), nil
}

// Update applies the mutation function fn to the task identified by id under
// a write lock. The function receives the actual stored task pointer, so all
// mutations are applied in-place.
func (s *TaskStore) Update(id string, fn func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %q: %w", id, ErrTaskNotFound)
	}
	fn(t)
	return nil
}

// List returns tasks matching the filter criteria with pagination support.
//
// Filtering:
//   - If Status is non-empty, only tasks whose current state matches are
//     included.
//
// Pagination:
//   - PageToken is the ID of the last task from the previous page; results
//     start after that task in insertion order.
//   - PageSize <= 0 means return all matching tasks (no pagination).
func (s *TaskStore) List(filter ListTasksRequest) (*ListTasksResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Determine where to start based on page token.
	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, id := range s.orderIDs {
			if id == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
	}

	// Collect all matching tasks (for total count) and the page slice.
	var matched []Task
	for i := startIdx; i < len(s.orderIDs); i++ {
		t := s.tasks[s.orderIDs[i]]
		if !matchesFilter(t, filter) {
			continue
		}
		matched = append(matched, *deepCopyTask(t))
	}

	// Also count matches before startIdx for the total size.
	totalBefore := 0
	for i := 0; i < startIdx; i++ {
		t := s.tasks[s.orderIDs[i]]
		if matchesFilter(t, filter) {
			totalBefore++
		}
	}

	totalSize := totalBefore + len(matched)

	// Apply page size.
	var nextPageToken string
	if filter.PageSize > 0 && len(matched) > filter.PageSize {
		nextPageToken = matched[filter.PageSize-1].ID
		matched = matched[:filter.PageSize]
	}

	if matched == nil {
		matched = []Task{}
	}

	return &ListTasksResponse{
		Tasks:         matched,
		TotalSize:     totalSize,
		NextPageToken: nextPageToken,
	}, nil
}

// matchesFilter returns true if the task passes the status filter specified
// in the request.
func matchesFilter(t *Task, filter ListTasksRequest) bool {
	return filter.Status == "" || string(t.Status.State) == filter.Status
}

// deepCopyTask returns a new Task that is a deep copy of src. The report's
// map and slice fields are independently copied.
func deepCopyTask(src *Task) *Task {
	dst := *src
	if src.Report != nil {
		dst.Report = deepCopyReport(src.Report)
	}
	return &dst
}

// deepCopyReport returns a deep copy of a status report.
func deepCopyReport(src *status.Report) *status.Report {
	dst := *src

	if src.ByType != nil {
		dst.ByType = make(map[graph.ResourceKind]int, len(src.ByType))
		for k, v := range src.ByType {
			dst.ByType[k] = v
		}
	}

	if src.DependencyTypes != nil {
		dst.DependencyTypes = make(map[graph.DependencyKind]int, len(src.DependencyTypes))
		for k, v := range src.DependencyTypes {
			dst.DependencyTypes[k] = v
		}
	}

	if src.Autoloads != nil {
		dst.Autoloads = make([]string, len(src.Autoloads))
		copy(dst.Autoloads, src.Autoloads)
	}

	if src.OrphanResources != nil {
		dst.OrphanResources = make([]string, len(src.OrphanResources))
		copy(dst.OrphanResources, src.OrphanResources)
	}

	return &dst
}
