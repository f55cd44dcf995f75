// Package orchestrator is the sole mutation surface for the workstream
// hierarchy. Every operation validates its inputs, applies the change to
// a freshly loaded snapshot, persists it through the store's atomic write
// path, and only then publishes a domain event.
package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/loom/internal/eventbus"
	"github.com/yourusername/loom/internal/hierarchy"
	"github.com/yourusername/loom/internal/store"
)

// Operations is the orchestrator's public operation set. The recorder
// wraps this interface so nothing can mutate the hierarchy without
// leaving a trace.
type Operations interface {
	CreateWorkstream(name string) (*hierarchy.Workstream, error)
	SelectWorkstream(id string) (*hierarchy.Workstream, error)
	GetOrCreateWorkstream(name string) (*hierarchy.Workstream, error)
	ListWorkstreams() ([]store.Summary, error)
	ArchiveWorkstream(id string) (*hierarchy.Workstream, error)

	CreatePlan(workstreamID, name, description string) (*hierarchy.Plan, error)
	UpdatePlanStatus(workstreamID, planID string, status hierarchy.PlanStatus) (*hierarchy.Plan, error)
	ArchivePlan(workstreamID, planID string) (*hierarchy.Plan, error)

	CreateTask(workstreamID, planID, title, description string, priority hierarchy.Priority, dependsOn []string) (*hierarchy.Task, error)
	UpdateTaskStatus(workstreamID, planID, taskID string, status hierarchy.TaskStatus) (*hierarchy.Task, error)
	AddTaskDependency(workstreamID, planID, taskID, dependsOn string) (*hierarchy.Task, error)
	DeleteTask(workstreamID, planID, taskID string) error
	RecordTaskAction(workstreamID, planID, taskID, action, detail string) (*hierarchy.Task, error)
	RecordTaskResult(workstreamID, planID, taskID, key, value string) (*hierarchy.Task, error)
	RecordTaskError(workstreamID, planID, taskID, message string) (*hierarchy.Task, error)
	RecordTouchedFile(workstreamID, planID, taskID, path string) (*hierarchy.Task, error)
	GetNextTask(workstreamID, planID string) (*hierarchy.Task, *Diagnostic, error)
}

// Bus is the minimal publish contract the orchestrator needs; satisfied
// by *eventbus.Bus.
type Bus interface {
	Publish(event eventbus.Event)
}

// Orchestrator enforces the task state machine, dependency rules, and
// the next-task selection algorithm on top of a Store.
type Orchestrator struct {
	store       store.Store
	bus         Bus
	clock       func() time.Time
	singleFocus bool
}

var _ Operations = (*Orchestrator)(nil)

// Option customizes the orchestrator instance.
type Option func(*Orchestrator)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBus attaches the event bus that receives domain events.
func WithBus(bus Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

// WithSingleFocus enables single-focus mode: at most one task per plan
// may be in planning or in_progress at a time. Off by default.
func WithSingleFocus(enabled bool) Option {
	return func(o *Orchestrator) {
		o.singleFocus = enabled
	}
}

// New wires an orchestrator to its persistence store.
func New(st store.Store, opts ...Option) (*Orchestrator, error) {
	if st == nil {
		return nil, fmt.Errorf("orchestrator: store is required")
	}
	o := &Orchestrator{
		store: st,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// CreateWorkstream creates a new workstream. It fails when a workstream
// with the same derived id already exists; creation is never a lookup
// side effect.
func (o *Orchestrator) CreateWorkstream(name string) (*hierarchy.Workstream, error) {
	const op = "create_workstream"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation(op, "workstream name is required")
	}
	id := hierarchy.WorkstreamIDFromName(name)
	if id == hierarchy.WorkstreamIDFromName("") {
		return nil, validation(op, fmt.Sprintf("name %q yields an empty id", name))
	}
	if _, err := o.store.Load(id); err == nil {
		return nil, validation(op, fmt.Sprintf("workstream %s already exists", id))
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, persistence(op, id, err)
	}
	ws := hierarchy.NewWorkstream(name, o.now())
	if err := o.store.Save(ws); err != nil {
		return nil, persistence(op, ws.ID, err)
	}
	o.publish(EventWorkstreamCreated, ws.ID, ws.ID, map[string]any{"name": ws.Name})
	return ws, nil
}

// SelectWorkstream loads an existing workstream by id. It never creates
// one as a side effect; absence is a not_found failure.
func (o *Orchestrator) SelectWorkstream(id string) (*hierarchy.Workstream, error) {
	const op = "select_workstream"
	return o.loadWorkstream(op, id)
}

// GetOrCreateWorkstream loads the workstream whose id derives from name,
// creating it when absent. Auto-creation is opt-in through this method
// only.
func (o *Orchestrator) GetOrCreateWorkstream(name string) (*hierarchy.Workstream, error) {
	const op = "get_or_create_workstream"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation(op, "workstream name is required")
	}
	ws, err := o.store.Load(hierarchy.WorkstreamIDFromName(name))
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, persistence(op, hierarchy.WorkstreamIDFromName(name), err)
	}
	return o.CreateWorkstream(name)
}

// ListWorkstreams enumerates workstream summaries without loading task
// bodies.
func (o *Orchestrator) ListWorkstreams() ([]store.Summary, error) {
	const op = "list_workstreams"
	summaries, err := o.store.List()
	if err != nil {
		return nil, persistence(op, "", err)
	}
	return summaries, nil
}

// ArchiveWorkstream marks a workstream archived. Archival is the soft
// delete; nothing in the core removes a workstream file.
func (o *Orchestrator) ArchiveWorkstream(id string) (*hierarchy.Workstream, error) {
	const op = "archive_workstream"
	ws, err := o.loadWorkstream(op, id)
	if err != nil {
		return nil, err
	}
	if ws.Status == hierarchy.WorkstreamArchived {
		return ws, nil
	}
	ws.Status = hierarchy.WorkstreamArchived
	ws.UpdatedAt = o.now()
	if err := o.store.Save(ws); err != nil {
		return nil, persistence(op, ws.ID, err)
	}
	o.publish(EventWorkstreamArchived, ws.ID, ws.ID, nil)
	return ws, nil
}

// CreatePlan adds an empty active plan to a workstream.
func (o *Orchestrator) CreatePlan(workstreamID, name, description string) (*hierarchy.Plan, error) {
	const op = "create_plan"
	if strings.TrimSpace(name) == "" {
		return nil, validation(op, "plan name is required")
	}
	ws, err := o.loadWorkstream(op, workstreamID)
	if err != nil {
		return nil, err
	}
	now := o.now()
	plan := hierarchy.NewPlan(name, description, now)
	ws.Plans[plan.ID] = plan
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		return nil, persistence(op, workstreamID, err)
	}
	o.publish(EventPlanCreated, ws.ID, plan.ID, map[string]any{"name": plan.Name})
	return plan, nil
}

// UpdatePlanStatus changes a plan's status. Marking a plan completed is
// rejected while any task is non-terminal.
func (o *Orchestrator) UpdatePlanStatus(workstreamID, planID string, status hierarchy.PlanStatus) (*hierarchy.Plan, error) {
	const op = "update_plan_status"
	if !status.Valid() {
		return nil, validation(op, fmt.Sprintf("unknown plan status %q", status))
	}
	ws, plan, err := o.loadPlan(op, workstreamID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == status {
		return plan, nil
	}
	if status == hierarchy.PlanCompleted && !plan.AllTasksTerminal() {
		return nil, invalidTransition(op, planID, "plan has non-terminal tasks")
	}
	previous := plan.Status
	now := o.now()
	plan.Status = status
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		plan.Status = previous
		return nil, persistence(op, planID, err)
	}
	o.publish(EventPlanStatusChanged, ws.ID, plan.ID, map[string]any{
		"from": string(previous),
		"to":   string(status),
	})
	return plan, nil
}

// ArchivePlan is the soft delete for plans.
func (o *Orchestrator) ArchivePlan(workstreamID, planID string) (*hierarchy.Plan, error) {
	return o.UpdatePlanStatus(workstreamID, planID, hierarchy.PlanArchived)
}

func (o *Orchestrator) loadWorkstream(op, id string) (*hierarchy.Workstream, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validation(op, "workstream id is required")
	}
	ws, err := o.store.Load(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(op, id, "workstream does not exist")
		}
		return nil, persistence(op, id, err)
	}
	return ws, nil
}

func (o *Orchestrator) loadPlan(op, workstreamID, planID string) (*hierarchy.Workstream, *hierarchy.Plan, error) {
	ws, err := o.loadWorkstream(op, workstreamID)
	if err != nil {
		return nil, nil, err
	}
	plan, ok := ws.Plan(strings.TrimSpace(planID))
	if !ok {
		return nil, nil, notFound(op, planID, "plan does not exist")
	}
	return ws, plan, nil
}

func (o *Orchestrator) loadTask(op, workstreamID, planID, taskID string) (*hierarchy.Workstream, *hierarchy.Plan, *hierarchy.Task, error) {
	ws, plan, err := o.loadPlan(op, workstreamID, planID)
	if err != nil {
		return nil, nil, nil, err
	}
	task, ok := plan.Task(strings.TrimSpace(taskID))
	if !ok {
		return nil, nil, nil, notFound(op, taskID, "task does not exist")
	}
	return ws, plan, task, nil
}
