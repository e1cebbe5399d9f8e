package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore persists snapshots and checkpoints in a shared MySQL/MariaDB
// database, for multi-process deployments where SQLiteStore's single
// writer isn't enough.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens dsn and ensures the required tables exist. See
// go-sql-driver/mysql's DSN format: user:pass@tcp(host:port)/dbname.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id VARCHAR(191) NOT NULL,
			step_index INT NOT NULL,
			blob LONGBLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step_index)
		)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			label VARCHAR(191) PRIMARY KEY,
			blob LONGBLOB NOT NULL,
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

func (s *MySQLStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if s.isClosed() {
		return fmt.Errorf("store: closed")
	}
	blob, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, step_index, blob) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE blob = VALUES(blob)`,
		snap.RunID, snap.StepIndex, blob)
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *MySQLStore) LoadLatest(ctx context.Context, runID string) (Snapshot, error) {
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

func (s *MySQLStore) LoadAt(ctx context.Context, runID string, stepIndex int) (Snapshot, error) {
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

func (s *MySQLStore) ListSteps(ctx context.Context, runID string) ([]int, error) {
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

func (s *MySQLStore) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	if s.isClosed() {
		return fmt.Errorf("store: closed")
	}
	blob, err := encodeSnapshot(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("store: encode checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (label, blob) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE blob = VALUES(blob)`,
		cp.Label, blob)
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

func (s *MySQLStore) LoadCheckpoint(ctx context.Context, label string) (Checkpoint, error) {
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

func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *MySQLStore) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
