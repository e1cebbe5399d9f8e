package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots and checkpoints in a single-file
// database: zero setup, WAL mode for concurrent reads, one writer.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path,
// which may be ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			blob BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			label TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if s.isClosed() {
		return fmt.Errorf("store: closed")
	}
	blob, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, step_index, blob) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, step_index) DO UPDATE SET blob = excluded.blob`,
		snap.RunID, snap.StepIndex, blob)
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadLatest(ctx context.Context, runID string) (Snapshot, error) {
	if s.isClosed() {
		return Snapshot{}, fmt.Errorf("store: closed")
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM snapshots WHERE run_id = ? ORDER BY step_index DESC LIMIT 1`,
		runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load latest: %w", err)
	}
	return decodeSnapshot(blob)
}

func (s *SQLiteStore) LoadAt(ctx context.Context, runID string, stepIndex int) (Snapshot, error) {
	if s.isClosed() {
		return Snapshot{}, fmt.Errorf("store: closed")
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM snapshots WHERE run_id = ? AND step_index = ?`,
		runID, stepIndex).Scan(&blob)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load at: %w", err)
	}
	return decodeSnapshot(blob)
}

func (s *SQLiteStore) ListSteps(ctx context.Context, runID string) ([]int, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("store: closed")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_index FROM snapshots WHERE run_id = ? ORDER BY step_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: list steps: %w", err)
	}
	defer rows.Close()

	var indexes []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	if s.isClosed() {
		return fmt.Errorf("store: closed")
	}
	blob, err := encodeSnapshot(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("store: encode checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (label, blob) VALUES (?, ?)
		 ON CONFLICT(label) DO UPDATE SET blob = excluded.blob`,
		cp.Label, blob)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadCheckpoint(ctx context.Context, label string) (Checkpoint, error) {
	if s.isClosed() {
		return Checkpoint{}, fmt.Errorf("store: closed")
	}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM checkpoints WHERE label = ?`, label).Scan(&blob)
	if err == sql.ErrNoRows {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("store: load checkpoint: %w", err)
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		return Checkpoint{}, err
	}
	return Checkpoint{Label: label, Snapshot: snap}, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
