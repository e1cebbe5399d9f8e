package store

import (
	"context"
	"testing"
	"time"
)

// runStoreContract exercises the full Store interface against impl,
// so MemStore and SQLiteStore are held to the identical behavior
// contract instead of duplicating test bodies per backend.
func runStoreContract(t *testing.T, impl Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := impl.LoadLatest(ctx, "missing-run"); err != ErrNotFound {
		t.Fatalf("LoadLatest on unknown run = %v, want ErrNotFound", err)
	}

	snap1 := Snapshot{
		RunID:      "run-1",
		StepIndex:  1,
		NodeID:     "start",
		Timestamp:  time.Unix(1000, 0).UTC(),
		Blackboard: map[string]interface{}{"status": "running"},
		Outputs:    map[string]string{"start": "hello"},
	}
	snap2 := snap1
	snap2.StepIndex = 2
	snap2.NodeID = "finish"
	snap2.Outputs = map[string]string{"start": "hello", "finish": "world"}

	if err := impl.SaveSnapshot(ctx, snap1); err != nil {
		t.Fatalf("SaveSnapshot(1): %v", err)
	}
	if err := impl.SaveSnapshot(ctx, snap2); err != nil {
		t.Fatalf("SaveSnapshot(2): %v", err)
	}

	latest, err := impl.LoadLatest(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if latest.StepIndex != 2 || latest.NodeID != "finish" {
		t.Fatalf("LoadLatest = %+v, want step 2 at finish", latest)
	}

	at1, err := impl.LoadAt(ctx, "run-1", 1)
	if err != nil {
		t.Fatalf("LoadAt(1): %v", err)
	}
	if at1.Outputs["start"] != "hello" {
		t.Fatalf("LoadAt(1).Outputs = %v", at1.Outputs)
	}

	steps, err := impl.ListSteps(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 2 || steps[0] != 1 || steps[1] != 2 {
		t.Fatalf("ListSteps = %v, want [1 2]", steps)
	}

	cp := Checkpoint{Label: "before_finish", Snapshot: snap1}
	if err := impl.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	loaded, err := impl.LoadCheckpoint(ctx, "before_finish")
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if loaded.Snapshot.NodeID != "start" {
		t.Fatalf("LoadCheckpoint.Snapshot.NodeID = %q, want start", loaded.Snapshot.NodeID)
	}

	if _, err := impl.LoadCheckpoint(ctx, "never-saved"); err != ErrNotFound {
		t.Fatalf("LoadCheckpoint on unknown label = %v, want ErrNotFound", err)
	}

	// Overwriting an existing snapshot at the same (run, step) updates in place.
	overwrite := snap1
	overwrite.NodeID = "start-retried"
	if err := impl.SaveSnapshot(ctx, overwrite); err != nil {
		t.Fatalf("SaveSnapshot overwrite: %v", err)
	}
	reloaded, err := impl.LoadAt(ctx, "run-1", 1)
	if err != nil {
		t.Fatalf("LoadAt after overwrite: %v", err)
	}
	if reloaded.NodeID != "start-retried" {
		t.Fatalf("LoadAt after overwrite = %q, want start-retried", reloaded.NodeID)
	}
}

func TestMemStoreSatisfiesContract(t *testing.T) {
	runStoreContract(t, NewMemStore())
}

func TestSQLiteStoreSatisfiesContract(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	runStoreContract(t, s)
}
