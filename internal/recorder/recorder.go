// Package recorder wraps the orchestrator's operation set so that every
// call leaves a trace, whether or not the orchestrator published a
// matching domain event. Records are published on the bus with
// Source=automatic and appended to a per-workstream JSONL journal, both
// off the caller's critical path.
package recorder

import (
	"time"

	"github.com/yourusername/loom/internal/eventbus"
	"github.com/yourusername/loom/internal/hierarchy"
	"github.com/yourusername/loom/internal/orchestrator"
	"github.com/yourusername/loom/internal/store"
)

// Record is the serialized observation of one orchestrator call.
type Record struct {
	Op           string            `json:"op"`
	WorkstreamID string            `json:"workstream_id,omitempty"`
	EntityID     string            `json:"entity_id,omitempty"`
	Args         map[string]string `json:"args,omitempty"`
	Result       string            `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMS   int64             `json:"duration_ms"`
}

// Logger reports background delivery failures.
type Logger interface {
	Printf(format string, args ...any)
}

// Recorder implements orchestrator.Operations by delegating to the real
// orchestrator and observing every call.
type Recorder struct {
	next    orchestrator.Operations
	bus     orchestrator.Bus
	journal *Journal
	pool    *pool
	logger  Logger
	clock   func() time.Time
}

var _ orchestrator.Operations = (*Recorder)(nil)

// Option customizes recorder construction.
type Option func(*options)

type options struct {
	workers      int
	queueSize    int
	attemptLimit time.Duration
	logger       Logger
	clock        func() time.Time
}

// WithWorkers sets the background worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithQueueSize bounds the pending record queue.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithAttemptLimit bounds a single delivery attempt.
func WithAttemptLimit(d time.Duration) Option {
	return func(o *options) {
		o.attemptLimit = d
	}
}

// WithLogger injects the diagnostics sink for delivery failures.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// New wraps next so every operation is recorded. bus and journal may each
// be nil when only the other sink is wanted.
func New(next orchestrator.Operations, bus orchestrator.Bus, journal *Journal, opts ...Option) *Recorder {
	cfg := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	r := &Recorder{
		next:    next,
		bus:     bus,
		journal: journal,
		logger:  cfg.logger,
		clock:   cfg.clock,
	}
	r.pool = newPool(cfg.workers, cfg.queueSize, cfg.attemptLimit, r.deliver)
	return r
}

// Close drains pending records and stops the workers.
func (r *Recorder) Close() {
	r.pool.close()
}

// DroppedRecords reports how many records were lost to queue saturation
// or delivery timeouts.
func (r *Recorder) DroppedRecords() uint64 {
	return r.pool.droppedCount()
}

func (r *Recorder) deliver(record Record) {
	if r.journal != nil {
		if err := r.journal.Append(record); err != nil && r.logger != nil {
			r.logger.Printf("recorder: journal append failed: %v", err)
		}
	}
	if r.bus != nil {
		r.bus.Publish(eventbus.NewEvent(
			orchestrator.EventMethodInvoked,
			record.WorkstreamID,
			record.EntityID,
			eventbus.SourceAutomatic,
			map[string]any{
				"op":          record.Op,
				"args":        record.Args,
				"result":      record.Result,
				"error":       record.Error,
				"duration_ms": record.DurationMS,
			},
		))
	}
}

// observe snapshots one finished call and queues it for background
// delivery. It never blocks the caller.
func (r *Recorder) observe(op, workstreamID, entityID string, args map[string]string, result string, err error, startedAt time.Time) {
	record := Record{
		Op:           op,
		WorkstreamID: workstreamID,
		EntityID:     entityID,
		Args:         args,
		Result:       result,
		StartedAt:    startedAt.UTC(),
		DurationMS:   r.clock().Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		record.Error = err.Error()
	}
	r.pool.enqueue(record)
}

func workstreamResult(ws *hierarchy.Workstream) string {
	if ws == nil {
		return ""
	}
	return ws.ID
}

func planResult(p *hierarchy.Plan) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func taskResult(t *hierarchy.Task) string {
	if t == nil {
		return ""
	}
	return t.ID
}

// CreateWorkstream records and delegates.
func (r *Recorder) CreateWorkstream(name string) (*hierarchy.Workstream, error) {
	start := r.clock()
	ws, err := r.next.CreateWorkstream(name)
	r.observe("create_workstream", workstreamResult(ws), workstreamResult(ws),
		map[string]string{"name": name}, workstreamResult(ws), err, start)
	return ws, err
}

// SelectWorkstream records and delegates.
func (r *Recorder) SelectWorkstream(id string) (*hierarchy.Workstream, error) {
	start := r.clock()
	ws, err := r.next.SelectWorkstream(id)
	r.observe("select_workstream", id, id, map[string]string{"id": id}, workstreamResult(ws), err, start)
	return ws, err
}

// GetOrCreateWorkstream records and delegates.
func (r *Recorder) GetOrCreateWorkstream(name string) (*hierarchy.Workstream, error) {
	start := r.clock()
	ws, err := r.next.GetOrCreateWorkstream(name)
	r.observe("get_or_create_workstream", workstreamResult(ws), workstreamResult(ws),
		map[string]string{"name": name}, workstreamResult(ws), err, start)
	return ws, err
}

// ListWorkstreams records and delegates.
func (r *Recorder) ListWorkstreams() ([]store.Summary, error) {
	start := r.clock()
	summaries, err := r.next.ListWorkstreams()
	r.observe("list_workstreams", "", "", nil, "", err, start)
	return summaries, err
}

// ArchiveWorkstream records and delegates.
func (r *Recorder) ArchiveWorkstream(id string) (*hierarchy.Workstream, error) {
	start := r.clock()
	ws, err := r.next.ArchiveWorkstream(id)
	r.observe("archive_workstream", id, id, map[string]string{"id": id}, workstreamResult(ws), err, start)
	return ws, err
}

// CreatePlan records and delegates.
func (r *Recorder) CreatePlan(workstreamID, name, description string) (*hierarchy.Plan, error) {
	start := r.clock()
	plan, err := r.next.CreatePlan(workstreamID, name, description)
	r.observe("create_plan", workstreamID, planResult(plan),
		map[string]string{"name": name}, planResult(plan), err, start)
	return plan, err
}

// UpdatePlanStatus records and delegates.
func (r *Recorder) UpdatePlanStatus(workstreamID, planID string, status hierarchy.PlanStatus) (*hierarchy.Plan, error) {
	start := r.clock()
	plan, err := r.next.UpdatePlanStatus(workstreamID, planID, status)
	r.observe("update_plan_status", workstreamID, planID,
		map[string]string{"status": string(status)}, planResult(plan), err, start)
	return plan, err
}

// ArchivePlan records and delegates.
func (r *Recorder) ArchivePlan(workstreamID, planID string) (*hierarchy.Plan, error) {
	start := r.clock()
	plan, err := r.next.ArchivePlan(workstreamID, planID)
	r.observe("archive_plan", workstreamID, planID, nil, planResult(plan), err, start)
	return plan, err
}

// CreateTask records and delegates.
func (r *Recorder) CreateTask(workstreamID, planID, title, description string, priority hierarchy.Priority, dependsOn []string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.CreateTask(workstreamID, planID, title, description, priority, dependsOn)
	r.observe("create_task", workstreamID, taskResult(task), map[string]string{
		"plan_id":  planID,
		"title":    title,
		"priority": string(priority),
	}, taskResult(task), err, start)
	return task, err
}

// UpdateTaskStatus records and delegates.
func (r *Recorder) UpdateTaskStatus(workstreamID, planID, taskID string, status hierarchy.TaskStatus) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.UpdateTaskStatus(workstreamID, planID, taskID, status)
	r.observe("update_task_status", workstreamID, taskID, map[string]string{
		"plan_id": planID,
		"status":  string(status),
	}, taskResult(task), err, start)
	return task, err
}

// AddTaskDependency records and delegates.
func (r *Recorder) AddTaskDependency(workstreamID, planID, taskID, dependsOn string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.AddTaskDependency(workstreamID, planID, taskID, dependsOn)
	r.observe("add_task_dependency", workstreamID, taskID, map[string]string{
		"plan_id":    planID,
		"depends_on": dependsOn,
	}, taskResult(task), err, start)
	return task, err
}

// DeleteTask records and delegates.
func (r *Recorder) DeleteTask(workstreamID, planID, taskID string) error {
	start := r.clock()
	err := r.next.DeleteTask(workstreamID, planID, taskID)
	r.observe("delete_task", workstreamID, taskID, map[string]string{"plan_id": planID}, "", err, start)
	return err
}

// RecordTaskAction records and delegates.
func (r *Recorder) RecordTaskAction(workstreamID, planID, taskID, action, detail string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.RecordTaskAction(workstreamID, planID, taskID, action, detail)
	r.observe("record_task_action", workstreamID, taskID, map[string]string{
		"plan_id": planID,
		"action":  action,
	}, taskResult(task), err, start)
	return task, err
}

// RecordTaskResult records and delegates.
func (r *Recorder) RecordTaskResult(workstreamID, planID, taskID, key, value string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.RecordTaskResult(workstreamID, planID, taskID, key, value)
	r.observe("record_task_result", workstreamID, taskID, map[string]string{
		"plan_id": planID,
		"key":     key,
	}, taskResult(task), err, start)
	return task, err
}

// RecordTaskError records and delegates.
func (r *Recorder) RecordTaskError(workstreamID, planID, taskID, message string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.RecordTaskError(workstreamID, planID, taskID, message)
	r.observe("record_task_error", workstreamID, taskID, map[string]string{
		"plan_id": planID,
	}, taskResult(task), err, start)
	return task, err
}

// RecordTouchedFile records and delegates.
func (r *Recorder) RecordTouchedFile(workstreamID, planID, taskID, path string) (*hierarchy.Task, error) {
	start := r.clock()
	task, err := r.next.RecordTouchedFile(workstreamID, planID, taskID, path)
	r.observe("record_touched_file", workstreamID, taskID, map[string]string{
		"plan_id": planID,
		"path":    path,
	}, taskResult(task), err, start)
	return task, err
}

// GetNextTask records and delegates.
func (r *Recorder) GetNextTask(workstreamID, planID string) (*hierarchy.Task, *orchestrator.Diagnostic, error) {
	start := r.clock()
	task, diag, err := r.next.GetNextTask(workstreamID, planID)
	result := taskResult(task)
	if task == nil && diag != nil {
		result = "no-candidate"
	}
	r.observe("get_next_task", workstreamID, taskResult(task),
		map[string]string{"plan_id": planID}, result, err, start)
	return task, diag, err
}
