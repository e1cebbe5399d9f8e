package memory

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func TestPostgresStoreAddUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO memories").
		WithArgs("1", "hello world", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Add(context.Background(), "1", "hello world", []string{"greeting"}, []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreSearchOrdersByCosineDistance(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "content", "tags"}).
		AddRow("1", "closest match", "{tag1}").
		AddRow("2", "second closest", "{}")
	mock.ExpectQuery("SELECT id, content, tags FROM memories ORDER BY embedding").
		WithArgs(sqlmock.AnyArg(), 2).
		WillReturnRows(rows)

	results, err := store.Search(context.Background(), []float32{0.1, 0.2}, 2)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "1" {
		t.Fatalf("expected nearest result first, got %s", results[0].ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
