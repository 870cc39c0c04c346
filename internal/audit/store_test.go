package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListExecutions(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordExecution(&Execution{
		SessionID: "s1",
		Tool:      "read_note",
		Category:  "read-only",
		Outcome:   OutcomeSuccess,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	store.RecordExecution(&Execution{
		SessionID:   "s1",
		Tool:        "delete_note",
		Category:    "destructive",
		Outcome:     OutcomeDeclined,
		FailureKind: "user_declined",
	})
	store.RecordExecution(&Execution{
		SessionID: "s2",
		Tool:      "read_note",
		Category:  "read-only",
		Outcome:   OutcomeSuccess,
	})

	execs, err := store.ListExecutions("s1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("expected 2 executions for s1, got %d", len(execs))
	}
	// Newest first.
	if execs[0].Tool != "delete_note" || execs[0].Outcome != OutcomeDeclined {
		t.Errorf("unexpected first row: %+v", execs[0])
	}

	all, _ := store.ListExecutions("", 10)
	if len(all) != 3 {
		t.Errorf("expected 3 executions overall, got %d", len(all))
	}
}

func TestTurnLifecycle(t *testing.T) {
	store := newTestStore(t)

	if err := store.BeginTurn("t1", "s1", "gpt-4o-mini"); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := store.FinishTurn("t1", TurnCompleted, "", 2, 3, 100, 50, 150); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	turns, err := store.GetTurns("s1", 10)
	if err != nil {
		t.Fatalf("get turns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	turn := turns[0]
	if turn.Status != TurnCompleted || turn.Rounds != 2 || turn.ToolCalls != 3 {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if turn.TotalTokens != 150 || turn.FinishedAt == nil {
		t.Errorf("turn accounting missing: %+v", turn)
	}
}

func TestUsageTotals(t *testing.T) {
	store := newTestStore(t)
	store.BeginTurn("t1", "s1", "m")
	store.FinishTurn("t1", TurnCompleted, "", 1, 0, 10, 5, 15)
	store.BeginTurn("t2", "s1", "m")
	store.FinishTurn("t2", TurnCompleted, "", 1, 0, 20, 10, 30)

	prompt, completion, total, err := store.UsageTotals("s1", time.Time{})
	if err != nil {
		t.Fatalf("usage totals failed: %v", err)
	}
	if prompt != 30 || completion != 15 || total != 45 {
		t.Errorf("unexpected totals: %d %d %d", prompt, completion, total)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	if err := store.RecordExecution(&Execution{}); err != nil {
		t.Errorf("nil store should no-op: %v", err)
	}
	if err := store.BeginTurn("t", "s", "m"); err != nil {
		t.Errorf("nil store should no-op: %v", err)
	}
	if _, err := store.ListExecutions("", 10); err != nil {
		t.Errorf("nil store should no-op: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("nil store close should no-op: %v", err)
	}
}
