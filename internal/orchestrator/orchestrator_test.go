package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/yourusername/loom/internal/eventbus"
	"github.com/yourusername/loom/internal/hierarchy"
	"github.com/yourusername/loom/internal/store"
)

// testClock hands out strictly increasing timestamps so creation order
// is always distinguishable.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "workstreams"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	clock := newTestClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	orch, err := New(st, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

// failingStore wraps a real store and fails every Save.
type failingStore struct {
	store.Store
}

func (f *failingStore) Save(*hierarchy.Workstream) error {
	return fmt.Errorf("disk full")
}

func TestCreateWorkstream(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, err := orch.CreateWorkstream("My Project")
	if err != nil {
		t.Fatalf("CreateWorkstream: %v", err)
	}
	if ws.ID != "ws-my-project" {
		t.Fatalf("unexpected id %s", ws.ID)
	}
	if ws.Status != hierarchy.WorkstreamActive {
		t.Fatalf("expected active, got %s", ws.Status)
	}

	if _, err := orch.CreateWorkstream("my project"); !IsKind(err, KindValidation) {
		t.Fatalf("duplicate create must fail with validation, got %v", err)
	}
}

func TestCreateWorkstreamRejectsEmptyName(t *testing.T) {
	orch := newTestOrchestrator(t)
	for _, name := range []string{"", "   ", "!!!"} {
		if _, err := orch.CreateWorkstream(name); !IsKind(err, KindValidation) {
			t.Errorf("name %q: expected validation error, got %v", name, err)
		}
	}
}

func TestSelectWorkstreamNeverCreates(t *testing.T) {
	orch := newTestOrchestrator(t)
	if _, err := orch.SelectWorkstream("ws-ghost"); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
	// Looking up must not have created anything.
	summaries, err := orch.ListWorkstreams()
	if err != nil {
		t.Fatalf("ListWorkstreams: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("lookup had a creation side effect: %v", summaries)
	}
}

func TestGetOrCreateWorkstream(t *testing.T) {
	orch := newTestOrchestrator(t)
	first, err := orch.GetOrCreateWorkstream("shared")
	if err != nil {
		t.Fatalf("GetOrCreateWorkstream: %v", err)
	}
	second, err := orch.GetOrCreateWorkstream("shared")
	if err != nil {
		t.Fatalf("second GetOrCreateWorkstream: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same workstream, got %s and %s", first.ID, second.ID)
	}
}

func TestArchiveWorkstream(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, _ := orch.CreateWorkstream("proj")
	archived, err := orch.ArchiveWorkstream(ws.ID)
	if err != nil {
		t.Fatalf("ArchiveWorkstream: %v", err)
	}
	if archived.Status != hierarchy.WorkstreamArchived {
		t.Fatalf("expected archived, got %s", archived.Status)
	}
	// Archiving twice is a no-op.
	if _, err := orch.ArchiveWorkstream(ws.ID); err != nil {
		t.Fatalf("second archive: %v", err)
	}
}

func TestCreatePlan(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, _ := orch.CreateWorkstream("proj")
	plan, err := orch.CreatePlan(ws.ID, "milestone 1", "ship it")
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Status != hierarchy.PlanActive {
		t.Fatalf("expected active plan, got %s", plan.Status)
	}
	if _, err := orch.CreatePlan(ws.ID, "", ""); !IsKind(err, KindValidation) {
		t.Fatalf("empty name must fail validation, got %v", err)
	}
	if _, err := orch.CreatePlan("ws-ghost", "x", ""); !IsKind(err, KindNotFound) {
		t.Fatalf("unknown workstream must fail not_found, got %v", err)
	}
}

func TestUpdatePlanStatusCompletionInvariant(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, _ := orch.CreateWorkstream("proj")
	plan, _ := orch.CreatePlan(ws.ID, "m1", "")
	task, _ := orch.CreateTask(ws.ID, plan.ID, "only task", "", hierarchy.PriorityHigh, nil)

	if _, err := orch.UpdatePlanStatus(ws.ID, plan.ID, hierarchy.PlanCompleted); !IsKind(err, KindInvalidTransition) {
		t.Fatalf("completing a plan with a pending task must fail, got %v", err)
	}

	// Cancel the task, then completion is allowed.
	if _, err := orch.UpdateTaskStatus(ws.ID, plan.ID, task.ID, hierarchy.TaskCancelled); err != nil {
		t.Fatalf("cancel task: %v", err)
	}
	// The cascade already completed the plan when its last task went
	// terminal; completing again is idempotent.
	updated, err := orch.UpdatePlanStatus(ws.ID, plan.ID, hierarchy.PlanCompleted)
	if err != nil {
		t.Fatalf("UpdatePlanStatus: %v", err)
	}
	if updated.Status != hierarchy.PlanCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestPersistenceFailureLeavesCallerView(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, _ := orch.CreateWorkstream("proj")
	plan, _ := orch.CreatePlan(ws.ID, "m1", "")

	// Swap in a store that fails every save.
	realStore := orch.store
	orch.store = &failingStore{Store: realStore}
	if _, err := orch.CreateTask(ws.ID, plan.ID, "doomed", "", hierarchy.PriorityLow, nil); !IsKind(err, KindPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	orch.store = realStore

	// The failed save must not have taken effect.
	reloaded, err := orch.SelectWorkstream(ws.ID)
	if err != nil {
		t.Fatalf("SelectWorkstream: %v", err)
	}
	if got := len(reloaded.Plans[plan.ID].Tasks); got != 0 {
		t.Fatalf("failed save leaked %d tasks into durable state", got)
	}
}

func TestDomainEventsCarryManualSource(t *testing.T) {
	bus := eventbus.New()
	var events []eventbus.Event
	sub := bus.Subscribe(eventbus.TypeWildcard, func(e eventbus.Event) {
		events = append(events, e)
	})
	defer sub.Close()

	orch := newTestOrchestrator(t, WithBus(bus))
	ws, _ := orch.CreateWorkstream("proj")
	plan, _ := orch.CreatePlan(ws.ID, "m1", "")
	if plan == nil {
		t.Fatal("plan not created")
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 domain events, got %d", len(events))
	}
	for _, e := range events {
		if e.Source != eventbus.SourceManual {
			t.Fatalf("domain events must be tagged manual, got %s", e.Source)
		}
	}
	if events[0].Type != EventWorkstreamCreated || events[1].Type != EventPlanCreated {
		t.Fatalf("unexpected event types: %s, %s", events[0].Type, events[1].Type)
	}
}

func TestNotFoundErrorsCarryOffendingID(t *testing.T) {
	orch := newTestOrchestrator(t)
	ws, _ := orch.CreateWorkstream("proj")
	_, err := orch.UpdatePlanStatus(ws.ID, "pl-ghost", hierarchy.PlanArchived)
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OpError, got %v", err)
	}
	if opErr.Kind != KindNotFound || opErr.EntityID != "pl-ghost" {
		t.Fatalf("error must carry the offending id: %+v", opErr)
	}
}
