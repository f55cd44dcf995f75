package orchestrator

import (
	"time"

	"github.com/yourusername/loom/internal/eventbus"
)

// Domain event types published by the orchestrator. The recorder
// additionally publishes EventMethodInvoked for every call; the Source
// field tells the two apart.
const (
	EventWorkstreamCreated  = "workstream.created"
	EventWorkstreamArchived = "workstream.archived"
	EventPlanCreated        = "plan.created"
	EventPlanStatusChanged  = "plan.status_changed"
	EventTaskCreated        = "task.created"
	EventTaskStatusChanged  = "task.status_changed"
	EventTaskDeleted        = "task.deleted"
	EventTaskDependency     = "task.dependency_added"
	EventTaskSelected       = "task.selected"
	EventTaskContext        = "task.context_recorded"
	EventMethodInvoked      = "method.invoked"
)

// publish emits a manual domain event when a bus is attached. Publication
// happens after the save succeeded, so subscribers only ever observe
// durable state.
func (o *Orchestrator) publish(eventType, workstreamID, entityID string, payload map[string]any) {
	if o.bus == nil {
		return
	}
	event := eventbus.NewEvent(eventType, workstreamID, entityID, eventbus.SourceManual, payload)
	event.Time = o.now().UTC()
	o.bus.Publish(event)
}

func (o *Orchestrator) now() time.Time {
	if o.clock == nil {
		return time.Now()
	}
	return o.clock()
}
