package orchestrator

import (
	"fmt"
	"strings"

	"github.com/yourusername/loom/internal/hierarchy"
)

const maxTitleLength = 200

// CreateTask adds a pending task to a plan. Dependencies must already
// exist in the same plan and must not introduce a cycle; on failure the
// plan is left untouched.
func (o *Orchestrator) CreateTask(workstreamID, planID, title, description string, priority hierarchy.Priority, dependsOn []string) (*hierarchy.Task, error) {
	const op = "create_task"
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validation(op, "task title is required")
	}
	if len(title) > maxTitleLength {
		return nil, validation(op, fmt.Sprintf("task title exceeds %d characters", maxTitleLength))
	}
	if priority == "" {
		priority = hierarchy.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validation(op, fmt.Sprintf("unknown priority %q", priority))
	}
	ws, plan, err := o.loadPlan(op, workstreamID, planID)
	if err != nil {
		return nil, err
	}
	if missing := missingDependencies(plan, dependsOn); len(missing) > 0 {
		return nil, &OpError{Kind: KindDependency, Op: op, EntityID: planID, Missing: missing, Message: "dependency does not exist in plan"}
	}
	now := o.now()
	task := hierarchy.NewTask(title, description, priority, dependsOn, now)
	// New tasks cannot close a cycle over existing edges, but the overlay
	// check keeps the write-time guarantee in one place.
	if cycle := findCycle(plan, task.ID, task.DependsOn); len(cycle) > 0 {
		return nil, &OpError{Kind: KindDependency, Op: op, EntityID: task.ID, Cycle: cycle, Message: "dependency cycle"}
	}
	plan.Tasks[task.ID] = task
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		delete(plan.Tasks, task.ID)
		return nil, persistence(op, task.ID, err)
	}
	o.publish(EventTaskCreated, ws.ID, task.ID, map[string]any{
		"plan_id":  plan.ID,
		"title":    task.Title,
		"priority": string(task.Priority),
	})
	return task, nil
}

// UpdateTaskStatus applies one state-machine transition. Requesting the
// current status is an idempotent no-op: no timestamps move and no event
// is published. Entering a terminal state re-evaluates the owning plan
// and cascades its completion.
func (o *Orchestrator) UpdateTaskStatus(workstreamID, planID, taskID string, status hierarchy.TaskStatus) (*hierarchy.Task, error) {
	const op = "update_task_status"
	if !status.Valid() {
		return nil, validation(op, fmt.Sprintf("unknown task status %q", status))
	}
	ws, plan, task, err := o.loadTask(op, workstreamID, planID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == status {
		return task, nil
	}
	if !canTransition(task.Status, status) {
		return nil, invalidTransition(op, taskID, fmt.Sprintf("%s -> %s", task.Status, status))
	}
	previous := task.Status
	now := o.now()
	task.Status = status
	task.UpdatedAt = now
	if status == hierarchy.TaskInProgress && task.StartedAt.IsZero() {
		task.StartedAt = now
	}
	if status == hierarchy.TaskCompleted {
		task.CompletedAt = now
	}
	cascaded := false
	planPrevious := plan.Status
	if status.Terminal() && plan.Status == hierarchy.PlanActive && plan.AllTasksTerminal() {
		plan.Status = hierarchy.PlanCompleted
		cascaded = true
	}
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		task.Status = previous
		plan.Status = planPrevious
		return nil, persistence(op, taskID, err)
	}
	o.publish(EventTaskStatusChanged, ws.ID, task.ID, map[string]any{
		"plan_id": plan.ID,
		"from":    string(previous),
		"to":      string(status),
	})
	if cascaded {
		o.publish(EventPlanStatusChanged, ws.ID, plan.ID, map[string]any{
			"from": string(planPrevious),
			"to":   string(plan.Status),
		})
	}
	return task, nil
}

// AddTaskDependency adds one dependency edge to an existing task. The
// referenced task must exist in the same plan and the edge must not close
// a cycle; the graph is unchanged on failure.
func (o *Orchestrator) AddTaskDependency(workstreamID, planID, taskID, dependsOn string) (*hierarchy.Task, error) {
	const op = "add_task_dependency"
	dependsOn = strings.TrimSpace(dependsOn)
	if dependsOn == "" {
		return nil, validation(op, "dependency id is required")
	}
	ws, plan, task, err := o.loadTask(op, workstreamID, planID, taskID)
	if err != nil {
		return nil, err
	}
	if task.DependsOnTask(dependsOn) {
		return task, nil
	}
	if missing := missingDependencies(plan, []string{dependsOn}); len(missing) > 0 {
		return nil, &OpError{Kind: KindDependency, Op: op, EntityID: taskID, Missing: missing, Message: "dependency does not exist in plan"}
	}
	if cycle := findCycle(plan, task.ID, append(append([]string{}, task.DependsOn...), dependsOn)); len(cycle) > 0 {
		return nil, &OpError{Kind: KindDependency, Op: op, EntityID: taskID, Cycle: cycle, Message: "dependency cycle"}
	}
	now := o.now()
	task.DependsOn = append(task.DependsOn, dependsOn)
	task.UpdatedAt = now
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		task.DependsOn = task.DependsOn[:len(task.DependsOn)-1]
		return nil, persistence(op, taskID, err)
	}
	o.publish(EventTaskDependency, ws.ID, task.ID, map[string]any{
		"plan_id":    plan.ID,
		"depends_on": dependsOn,
	})
	return task, nil
}

// DeleteTask removes a task. It fails while any other task in the plan
// still depends on it.
func (o *Orchestrator) DeleteTask(workstreamID, planID, taskID string) error {
	const op = "delete_task"
	ws, plan, task, err := o.loadTask(op, workstreamID, planID, taskID)
	if err != nil {
		return err
	}
	if dependents := plan.Dependents(task.ID); len(dependents) > 0 {
		return &OpError{
			Kind:     KindDependency,
			Op:       op,
			EntityID: taskID,
			Missing:  dependents,
			Message:  "task is a dependency of other tasks",
		}
	}
	now := o.now()
	delete(plan.Tasks, task.ID)
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		plan.Tasks[task.ID] = task
		return persistence(op, taskID, err)
	}
	o.publish(EventTaskDeleted, ws.ID, task.ID, map[string]any{"plan_id": plan.ID})
	return nil
}

// RecordTaskAction appends one entry to the task's action log.
func (o *Orchestrator) RecordTaskAction(workstreamID, planID, taskID, action, detail string) (*hierarchy.Task, error) {
	const op = "record_task_action"
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, validation(op, "action is required")
	}
	return o.mutateContext(op, workstreamID, planID, taskID, func(task *hierarchy.Task) {
		task.Context.AppendAction(o.now(), action, detail)
	})
}

// RecordTaskResult stores a named result value in the task's context.
func (o *Orchestrator) RecordTaskResult(workstreamID, planID, taskID, key, value string) (*hierarchy.Task, error) {
	const op = "record_task_result"
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, validation(op, "result key is required")
	}
	return o.mutateContext(op, workstreamID, planID, taskID, func(task *hierarchy.Task) {
		task.Context.SetResult(key, value)
	})
}

// RecordTaskError appends an execution failure to the task's error log.
func (o *Orchestrator) RecordTaskError(workstreamID, planID, taskID, message string) (*hierarchy.Task, error) {
	const op = "record_task_error"
	if strings.TrimSpace(message) == "" {
		return nil, validation(op, "error message is required")
	}
	return o.mutateContext(op, workstreamID, planID, taskID, func(task *hierarchy.Task) {
		task.Context.AppendError(message)
	})
}

// RecordTouchedFile records a file path the task touched.
func (o *Orchestrator) RecordTouchedFile(workstreamID, planID, taskID, path string) (*hierarchy.Task, error) {
	const op = "record_touched_file"
	if strings.TrimSpace(path) == "" {
		return nil, validation(op, "file path is required")
	}
	return o.mutateContext(op, workstreamID, planID, taskID, func(task *hierarchy.Task) {
		task.Context.TouchFile(path)
	})
}

func (o *Orchestrator) mutateContext(op, workstreamID, planID, taskID string, apply func(*hierarchy.Task)) (*hierarchy.Task, error) {
	ws, plan, task, err := o.loadTask(op, workstreamID, planID, taskID)
	if err != nil {
		return nil, err
	}
	apply(task)
	now := o.now()
	task.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		return nil, persistence(op, taskID, err)
	}
	o.publish(EventTaskContext, ws.ID, task.ID, map[string]any{"plan_id": plan.ID, "op": op})
	return task, nil
}
