package store

import (
	"os"
	"testing"
)

// TestMySQLIntegration validates MySQLStore against a real MySQL database.
//
// Prerequisites:
//   - MySQL server running (local, Docker, or cloud).
//   - TEST_MYSQL_DSN environment variable set, e.g.
//     "user:password@tcp(localhost:3306)/test_db?parseTime=true"
//
// export TEST_MYSQL_DSN="user:password@tcp(localhost:3306)/test_db?parseTime=true"
// go test -v -run TestMySQLIntegration ./store
func TestMySQLIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL integration test: set TEST_MYSQL_DSN to run")
	}

	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}
