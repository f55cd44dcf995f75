package hierarchy

import (
	"sort"
	"strings"
	"time"
)

// PlanStatus enumerates plan lifecycle states.
type PlanStatus string

const (
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanArchived  PlanStatus = "archived"
)

// Valid reports whether the value is a defined plan status.
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanActive, PlanCompleted, PlanArchived:
		return true
	}
	return false
}

// Plan groups the tasks pursuing one goal. A plan exclusively owns its
// tasks; dependency references never cross plan boundaries.
type Plan struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Status      PlanStatus        `json:"status"`
	Tasks       map[string]*Task  `json:"tasks"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewPlan constructs an empty active plan stamped with now.
func NewPlan(name, description string, now time.Time) *Plan {
	return &Plan{
		ID:          NewPlanID(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Status:      PlanActive,
		Tasks:       map[string]*Task{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Task returns the task with the given id, if present.
func (p *Plan) Task(id string) (*Task, bool) {
	t, ok := p.Tasks[id]
	return t, ok
}

// AllTasksTerminal reports whether every task is completed or cancelled.
// This is the plan-completion invariant: a plan may only be marked
// completed when it holds.
func (p *Plan) AllTasksTerminal() bool {
	for _, t := range p.Tasks {
		if !t.Status.Terminal() {
			return false
		}
	}
	return true
}

// Dependents returns ids of tasks that list taskID as a dependency,
// sorted for deterministic error reporting.
func (p *Plan) Dependents(taskID string) []string {
	var out []string
	for id, t := range p.Tasks {
		if t.DependsOnTask(taskID) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TasksByCreation returns the plan's tasks ordered by creation time,
// ties broken by id so iteration stays deterministic.
func (p *Plan) TasksByCreation() []*Task {
	out := make([]*Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
