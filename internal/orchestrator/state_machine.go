package orchestrator

import "github.com/yourusername/loom/internal/hierarchy"

// transitions is the complete task state machine edge set. Anything not
// listed here is rejected; there is no other way to change a task status.
var transitions = map[hierarchy.TaskStatus][]hierarchy.TaskStatus{
	hierarchy.TaskPending: {
		hierarchy.TaskPlanning,
		hierarchy.TaskBlocked,
		hierarchy.TaskCancelled,
	},
	hierarchy.TaskPlanning: {
		hierarchy.TaskInProgress,
		hierarchy.TaskBlocked,
		hierarchy.TaskCancelled,
	},
	hierarchy.TaskInProgress: {
		hierarchy.TaskReviewing,
		hierarchy.TaskBlocked,
		hierarchy.TaskCancelled,
	},
	hierarchy.TaskReviewing: {
		hierarchy.TaskCompleted,
		hierarchy.TaskCancelled,
	},
	hierarchy.TaskBlocked: {
		hierarchy.TaskPending,
		hierarchy.TaskPlanning,
		hierarchy.TaskInProgress,
		hierarchy.TaskCancelled,
	},
	// Completed and cancelled are terminal.
	hierarchy.TaskCompleted: nil,
	hierarchy.TaskCancelled: nil,
}

// canTransition reports whether from -> to is a defined edge.
func canTransition(from, to hierarchy.TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
