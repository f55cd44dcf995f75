package recorder

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/loom/internal/eventbus"
	"github.com/yourusername/loom/internal/hierarchy"
	"github.com/yourusername/loom/internal/orchestrator"
	"github.com/yourusername/loom/internal/store"
)

func newTestStack(t *testing.T, bus orchestrator.Bus, opts ...Option) (*Recorder, *Journal) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewFileStore(filepath.Join(dir, "workstreams"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	orch, err := orchestrator.New(st)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	journal, err := NewJournal(filepath.Join(dir, "events"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	// One worker keeps delivery order deterministic for assertions.
	opts = append([]Option{WithWorkers(1)}, opts...)
	return New(orch, bus, journal, opts...), journal
}

func TestRecorderJournalsEveryOperation(t *testing.T) {
	bus := eventbus.New()
	var mu sync.Mutex
	var invoked []eventbus.Event
	sub := bus.Subscribe(orchestrator.EventMethodInvoked, func(e eventbus.Event) {
		mu.Lock()
		defer mu.Unlock()
		invoked = append(invoked, e)
	})
	defer sub.Close()

	rec, journal := newTestStack(t, bus)
	ws, err := rec.CreateWorkstream("proj")
	if err != nil {
		t.Fatalf("CreateWorkstream: %v", err)
	}
	plan, err := rec.CreatePlan(ws.ID, "m1", "")
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	task, err := rec.CreateTask(ws.ID, plan.ID, "a", "", hierarchy.PriorityHigh, nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	rec.Close()

	records := journal.Tail(ws.ID, 10)
	if len(records) != 3 {
		t.Fatalf("expected 3 journal records, got %d", len(records))
	}
	wantOps := []string{"create_workstream", "create_plan", "create_task"}
	for i, r := range records {
		if r.Op != wantOps[i] {
			t.Fatalf("record %d: expected op %s, got %s", i, wantOps[i], r.Op)
		}
		if r.Error != "" {
			t.Fatalf("record %d: unexpected error %q", i, r.Error)
		}
	}
	if records[2].Result != task.ID {
		t.Fatalf("create_task record must carry the task id, got %q", records[2].Result)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(invoked) != 3 {
		t.Fatalf("expected 3 method.invoked events, got %d", len(invoked))
	}
	for _, e := range invoked {
		if e.Source != eventbus.SourceAutomatic {
			t.Fatalf("recorder events must be tagged automatic, got %s", e.Source)
		}
		if e.WorkstreamID != ws.ID {
			t.Fatalf("recorder event scoped to wrong workstream: %s", e.WorkstreamID)
		}
	}
	if rec.DroppedRecords() != 0 {
		t.Fatalf("no records should have been dropped, got %d", rec.DroppedRecords())
	}
}

func TestRecorderCapturesFailedCalls(t *testing.T) {
	rec, journal := newTestStack(t, nil)
	if _, err := rec.CreateWorkstream("  "); err == nil {
		t.Fatal("expected validation error from the wrapped orchestrator")
	}
	rec.Close()

	// A failed create has no workstream scope, so it lands in the global
	// stream.
	records := journal.Tail("", 10)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Op != "create_workstream" || records[0].Error == "" {
		t.Fatalf("record must carry the op and the error: %+v", records[0])
	}
}

func TestRecorderMarksEmptySelection(t *testing.T) {
	rec, journal := newTestStack(t, nil)
	ws, _ := rec.CreateWorkstream("proj")
	plan, _ := rec.CreatePlan(ws.ID, "m1", "")
	task, diag, err := rec.GetNextTask(ws.ID, plan.ID)
	if err != nil {
		t.Fatalf("GetNextTask: %v", err)
	}
	if task != nil || diag == nil {
		t.Fatalf("empty plan must yield a diagnostic, got task=%v diag=%v", task, diag)
	}
	rec.Close()

	records := journal.Tail(ws.ID, 10)
	last := records[len(records)-1]
	if last.Op != "get_next_task" || last.Result != "no-candidate" {
		t.Fatalf("empty selection must be recorded as no-candidate: %+v", last)
	}
}

func TestPoolDropsOldestWhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var delivered []string
	p := newPool(1, 1, time.Minute, func(r Record) {
		if r.Op == "first" {
			close(started)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, r.Op)
		mu.Unlock()
	})

	p.enqueue(Record{Op: "first"})
	<-started // the single worker is now stuck in delivery
	p.enqueue(Record{Op: "second"}) // fills the queue
	p.enqueue(Record{Op: "third"})  // evicts "second"
	close(release)
	p.close()

	if got := p.droppedCount(); got != 1 {
		t.Fatalf("expected 1 dropped record, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 || delivered[0] != "first" || delivered[1] != "third" {
		t.Fatalf("expected oldest pending record to be evicted, delivered %v", delivered)
	}
}

func TestPoolCountsTimedOutDeliveries(t *testing.T) {
	release := make(chan struct{})
	p := newPool(1, 4, 10*time.Millisecond, func(Record) {
		<-release
	})
	p.enqueue(Record{Op: "slow"})

	deadline := time.Now().Add(5 * time.Second)
	for p.droppedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed-out delivery never counted as dropped")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	p.close()
}

func TestJournalTailSkipsUnparseableLines(t *testing.T) {
	journal, err := NewJournal(t.TempDir())
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	for _, op := range []string{"one", "two", "three"} {
		if err := journal.Append(Record{Op: op, WorkstreamID: "ws-x", StartedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	// A torn write leaves a half-line behind.
	path := filepath.Join(journal.Dir(), "ws-x.jsonl")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	if _, err := file.WriteString(`{"op":"torn`); err != nil {
		t.Fatalf("append torn line: %v", err)
	}
	file.Close()

	records := journal.Tail("ws-x", 2)
	if len(records) != 2 {
		t.Fatalf("expected last 2 records, got %d", len(records))
	}
	if records[0].Op != "two" || records[1].Op != "three" {
		t.Fatalf("unexpected tail: %+v", records)
	}
	if got := journal.Tail("ws-x", 0); got != nil {
		t.Fatalf("non-positive limit must return nothing, got %v", got)
	}
	if got := journal.Tail("ws-absent", 5); got != nil {
		t.Fatalf("absent stream must return nothing, got %v", got)
	}
}
