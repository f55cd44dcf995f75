package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yourusername/loom/internal/hierarchy"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	st, err := NewFileStore(filepath.Join(t.TempDir(), "workstreams"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return st
}

func sampleWorkstream(t *testing.T) *hierarchy.Workstream {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ws := hierarchy.NewWorkstream("sample", now)
	plan := hierarchy.NewPlan("first plan", "do things", now)
	a := hierarchy.NewTask("task a", "", hierarchy.PriorityHigh, nil, now)
	b := hierarchy.NewTask("task b", "", hierarchy.PriorityLow, []string{a.ID}, now.Add(time.Minute))
	plan.Tasks[a.ID] = a
	plan.Tasks[b.ID] = b
	ws.Plans[plan.ID] = plan
	return ws
}

func TestLoadAbsentReturnsNotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.Load("ws-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ws := sampleWorkstream(t)
	if err := st.Save(ws); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := st.Load(ws.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != ws.ID || loaded.Name != ws.Name || loaded.Status != ws.Status {
		t.Fatalf("workstream fields differ after round trip")
	}
	if len(loaded.Plans) != len(ws.Plans) {
		t.Fatalf("plan count differs: %d vs %d", len(loaded.Plans), len(ws.Plans))
	}
	for planID, plan := range ws.Plans {
		loadedPlan, ok := loaded.Plans[planID]
		if !ok {
			t.Fatalf("plan %s missing after round trip", planID)
		}
		if len(loadedPlan.Tasks) != len(plan.Tasks) {
			t.Fatalf("task count differs for plan %s", planID)
		}
		for taskID, task := range plan.Tasks {
			loadedTask, ok := loadedPlan.Tasks[taskID]
			if !ok {
				t.Fatalf("task %s missing after round trip", taskID)
			}
			if loadedTask.Status != task.Status || loadedTask.Priority != task.Priority {
				t.Fatalf("task %s fields differ", taskID)
			}
			if !loadedTask.CreatedAt.Equal(task.CreatedAt) {
				t.Fatalf("task %s created_at differs", taskID)
			}
			if len(loadedTask.DependsOn) != len(task.DependsOn) {
				t.Fatalf("task %s dependency set differs", taskID)
			}
		}
	}

	// save(load(save(W))) reproduces the same structure
	if err := st.Save(loaded); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	again, err := st.Load(ws.ID)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again.TaskCount() != ws.TaskCount() {
		t.Fatalf("task count drifted across round trips")
	}
}

func TestSaveIsAtomicAgainstCrashLeftovers(t *testing.T) {
	st := newTestStore(t)
	ws := sampleWorkstream(t)
	if err := st.Save(ws); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a crash between the temp write and the rename: a stray,
	// truncated temp file sits next to the canonical document.
	stray := filepath.Join(st.Root(), ws.ID+".json.tmp.999")
	if err := os.WriteFile(stray, []byte(`{"id":"ws-sample","plans":{`), 0o644); err != nil {
		t.Fatalf("write stray temp: %v", err)
	}

	loaded, err := st.Load(ws.ID)
	if err != nil {
		t.Fatalf("Load after simulated crash: %v", err)
	}
	if loaded.TaskCount() != ws.TaskCount() {
		t.Fatalf("expected previous fully-valid state, got %d tasks", loaded.TaskCount())
	}

	summaries, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("List must skip temp leftovers, got %d entries", len(summaries))
	}
}

func TestListSummaries(t *testing.T) {
	st := newTestStore(t)
	if summaries, err := st.List(); err != nil || len(summaries) != 0 {
		t.Fatalf("empty store should list nothing, got %v %v", summaries, err)
	}
	now := time.Now().UTC()
	first := hierarchy.NewWorkstream("alpha", now)
	second := sampleWorkstream(t)
	if err := st.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Corrupt document must be skipped, not fatal.
	if err := os.WriteFile(filepath.Join(st.Root(), "ws-broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write corrupt doc: %v", err)
	}

	summaries, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	byID := map[string]Summary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if got := byID[second.ID]; got.PlanCount != 1 || got.TaskCount != 2 {
		t.Fatalf("summary counts wrong: %+v", got)
	}
	if got := byID[first.ID]; got.Name != "alpha" || got.Status != hierarchy.WorkstreamActive {
		t.Fatalf("summary fields wrong: %+v", got)
	}
}

func TestSaveRequiresID(t *testing.T) {
	st := newTestStore(t)
	if err := st.Save(&hierarchy.Workstream{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
