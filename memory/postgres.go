package memory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is a durable, embedding-backed alternative to
// VectorStore: it persists entries in Postgres and ranks by pgvector
// cosine distance instead of Jaccard/TF-IDF, for deployments that want
// real nearest-neighbor search over an actual embedding model's output.
type PostgresStore struct {
	db *sql.DB
}

// Embedder produces a vector for a piece of text; callers plug in
// whichever embedding model they use — this package has no opinion on
// one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenPostgresStore connects to dsn and ensures the memories table (with
// a pgvector column) exists.
func OpenPostgresStore(ctx context.Context, dsn string, dims int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("memory: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("memory: ping postgres: %w", err)
	}
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			embedding vector(%d)
		);
	`, dims)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: ensure schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Add inserts (or replaces) one entry with its embedding.
func (s *PostgresStore) Add(ctx context.Context, id, content string, tags []string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, tags, embedding) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET content = $2, tags = $3, embedding = $4`,
		id, content, pq.Array(tags), pgvector.NewVector(embedding))
	return err
}

// Search returns the limit nearest entries to queryEmbedding by cosine
// distance.
func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, tags FROM memories ORDER BY embedding <=> $1 LIMIT $2`,
		pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var tags []string
		if err := rows.Scan(&e.ID, &e.Content, pq.Array(&tags)); err != nil {
			return nil, err
		}
		e.Tags = tags
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
