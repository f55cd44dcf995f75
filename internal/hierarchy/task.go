package hierarchy

import (
	"strings"
	"time"
)

// TaskStatus enumerates the task state machine states.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskPlanning   TaskStatus = "planning"
	TaskInProgress TaskStatus = "in_progress"
	TaskReviewing  TaskStatus = "reviewing"
	TaskBlocked    TaskStatus = "blocked"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// Valid reports whether the value is one of the defined task states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskPlanning, TaskInProgress, TaskReviewing,
		TaskBlocked, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Priority orders tasks during selection.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps priorities onto a descending sort key; higher runs first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether the value is a defined priority.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ActionRecord is one entry in a task's append-only action log.
type ActionRecord struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
}

// ExecutionContext accumulates what happened while a task was worked on.
// The action log is append-only; nothing in the core ever rewrites it.
type ExecutionContext struct {
	Actions      []ActionRecord    `json:"actions,omitempty"`
	Results      map[string]string `json:"results,omitempty"`
	TouchedFiles []string          `json:"touched_files,omitempty"`
	Errors       []string          `json:"errors,omitempty"`
}

// AppendAction records an action with its timestamp.
func (c *ExecutionContext) AppendAction(at time.Time, action, detail string) {
	c.Actions = append(c.Actions, ActionRecord{At: at, Action: action, Detail: detail})
}

// SetResult stores a named result value.
func (c *ExecutionContext) SetResult(key, value string) {
	if c.Results == nil {
		c.Results = map[string]string{}
	}
	c.Results[key] = value
}

// TouchFile records a file path once, preserving first-touch order.
func (c *ExecutionContext) TouchFile(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	for _, existing := range c.TouchedFiles {
		if existing == path {
			return
		}
	}
	c.TouchedFiles = append(c.TouchedFiles, path)
}

// AppendError records an execution failure message.
func (c *ExecutionContext) AppendError(message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	c.Errors = append(c.Errors, message)
}

// Task is the atomic unit of work inside a plan.
type Task struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Status      TaskStatus       `json:"status"`
	Priority    Priority         `json:"priority"`
	// DependsOn lists task ids within the same plan that must reach
	// completed before this task is eligible to run. Lookup only, no
	// ownership.
	DependsOn   []string         `json:"depends_on,omitempty"`
	Context     ExecutionContext `json:"context"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	StartedAt   time.Time        `json:"started_at,omitempty"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

// DependsOnTask reports whether id appears in the task's dependency set.
func (t *Task) DependsOnTask(id string) bool {
	for _, dep := range t.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// NewTask constructs a pending task stamped with now.
func NewTask(title, description string, priority Priority, dependsOn []string, now time.Time) *Task {
	return &Task{
		ID:          NewTaskID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      TaskPending,
		Priority:    priority,
		DependsOn:   cloneStrings(dependsOn),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
