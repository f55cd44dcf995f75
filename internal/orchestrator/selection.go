package orchestrator

import (
	"sort"

	"github.com/yourusername/loom/internal/hierarchy"
)

// BlockedReason explains why one task is not runnable right now.
type BlockedReason struct {
	TaskID string               `json:"task_id"`
	Status hierarchy.TaskStatus `json:"status"`
	// UnmetDependency is the first dependency (in sorted order) that has
	// not reached completed.
	UnmetDependency string `json:"unmet_dependency,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// Diagnostic explains an empty selection so callers can report why
// nothing is runnable instead of surfacing a bare nil.
type Diagnostic struct {
	// Reason is set when selection was refused as a whole, e.g. another
	// task holds the focus in single-focus mode.
	Reason  string          `json:"reason,omitempty"`
	Blocked []BlockedReason `json:"blocked,omitempty"`
}

// GetNextTask returns the highest-priority eligible task, ties broken by
// oldest creation time. Eligible means status pending or blocked with
// every dependency completed. Selection is itself a transition: the
// returned task has been moved to planning and persisted, so it is never
// handed out twice while it stays planning or in_progress.
//
// When nothing is runnable the task is nil and the diagnostic lists each
// still-blocked task with its first unmet dependency.
func (o *Orchestrator) GetNextTask(workstreamID, planID string) (*hierarchy.Task, *Diagnostic, error) {
	const op = "get_next_task"
	ws, plan, err := o.loadPlan(op, workstreamID, planID)
	if err != nil {
		return nil, nil, err
	}

	if o.singleFocus {
		for _, task := range plan.TasksByCreation() {
			if task.Status == hierarchy.TaskPlanning || task.Status == hierarchy.TaskInProgress {
				return nil, &Diagnostic{
					Reason: "single-focus mode: task " + task.ID + " is current",
				}, nil
			}
		}
	}

	var candidates []*hierarchy.Task
	var blocked []BlockedReason
	for _, task := range plan.TasksByCreation() {
		if task.Status != hierarchy.TaskPending && task.Status != hierarchy.TaskBlocked {
			continue
		}
		if unmet, ok := firstUnmetDependency(plan, task); ok {
			blocked = append(blocked, BlockedReason{
				TaskID:          task.ID,
				Status:          task.Status,
				UnmetDependency: unmet,
				Detail:          "waiting on " + unmet,
			})
			continue
		}
		candidates = append(candidates, task)
	}

	if len(candidates) == 0 {
		return nil, &Diagnostic{Blocked: blocked}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority.Rank() != candidates[j].Priority.Rank() {
			return candidates[i].Priority.Rank() > candidates[j].Priority.Rank()
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	selected := candidates[0]
	previous := selected.Status
	now := o.now()
	selected.Status = hierarchy.TaskPlanning
	selected.UpdatedAt = now
	plan.UpdatedAt = now
	ws.UpdatedAt = now
	if err := o.store.Save(ws); err != nil {
		selected.Status = previous
		return nil, nil, persistence(op, selected.ID, err)
	}
	o.publish(EventTaskSelected, ws.ID, selected.ID, map[string]any{
		"plan_id": plan.ID,
		"from":    string(previous),
	})
	o.publish(EventTaskStatusChanged, ws.ID, selected.ID, map[string]any{
		"plan_id": plan.ID,
		"from":    string(previous),
		"to":      string(hierarchy.TaskPlanning),
	})
	return selected, nil, nil
}

// firstUnmetDependency returns the sorted-first dependency that has not
// completed. Dependencies are validated at write time, so a missing id
// here is an internal inconsistency and counts as unmet.
func firstUnmetDependency(plan *hierarchy.Plan, task *hierarchy.Task) (string, bool) {
	deps := append([]string(nil), task.DependsOn...)
	sort.Strings(deps)
	for _, dep := range deps {
		depTask, ok := plan.Task(dep)
		if !ok || depTask.Status != hierarchy.TaskCompleted {
			return dep, true
		}
	}
	return "", false
}
