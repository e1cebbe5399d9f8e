// Package store persists step-indexed execution snapshots and named
// checkpoints so a run can resume or replay from any prior step.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a requested run, step, or checkpoint label
// does not exist.
var ErrNotFound = errors.New("store: not found")

// Snapshot is the durable record taken after every successful node step:
// the blackboard in full, every node's latest output, and enough identity
// to resume or replay from exactly this point.
type Snapshot struct {
	RunID      string                 `msgpack:"run_id"`
	StepIndex  int                    `msgpack:"step_index"`
	NodeID     string                 `msgpack:"node_id"`
	Timestamp  time.Time              `msgpack:"timestamp"`
	Blackboard map[string]interface{} `msgpack:"blackboard"`
	Outputs    map[string]string      `msgpack:"outputs"`
}

// Checkpoint is a user- or engine-labeled snapshot kept independently of
// the step sequence, for branching workflows and manual resumption points
// (e.g. "before_summary", a pause/approval gate).
type Checkpoint struct {
	Label    string   `msgpack:"label"`
	Snapshot Snapshot `msgpack:"snapshot"`
}

// Store persists Snapshots and Checkpoints for one or more runs.
//
// Implementations: MemStore (tests, short-lived runs), SQLiteStore
// (single-file, zero-setup local persistence), MySQLStore (shared,
// multi-process persistence).
type Store interface {
	// SaveSnapshot appends a step snapshot to runID's history.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// LoadLatest returns the highest-StepIndex snapshot for runID.
	LoadLatest(ctx context.Context, runID string) (Snapshot, error)

	// LoadAt returns the snapshot at exactly stepIndex for runID, the
	// replay entry point for replay_from(index).
	LoadAt(ctx context.Context, runID string, stepIndex int) (Snapshot, error)

	// ListSteps returns every recorded step index for runID in ascending
	// order.
	ListSteps(ctx context.Context, runID string) ([]int, error)

	// SaveCheckpoint creates or overwrites a named checkpoint.
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error

	// LoadCheckpoint retrieves a named checkpoint.
	LoadCheckpoint(ctx context.Context, label string) (Checkpoint, error)

	// Close releases any underlying resources (connections, file handles).
	Close() error
}

// encodeSnapshot and decodeSnapshot give the SQL-backed stores a single
// compact blob codec instead of JSON-per-column, matching the pack's
// msgpack usage for anything that doesn't need to be queried by field.
func encodeSnapshot(s Snapshot) ([]byte, error) {
	return msgpack.Marshal(s)
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	err := msgpack.Unmarshal(data, &s)
	return s, err
}
