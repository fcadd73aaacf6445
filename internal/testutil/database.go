package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/database"
)

// SetupTestDB creates an in-memory SQLite database for testing with every
// migration applied. The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes). database.Open keeps a
	// single connection, so every query sees the same database.
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if _, err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// FailHoldingWrites installs a trigger that aborts any holding insert or update for
// symbol. It simulates a store failure in the middle of a trade.
//
// Example usage:
//
//	testutil.FailHoldingWrites(t, db, "FAIL")
func FailHoldingWrites(t *testing.T, db *sql.DB, symbol string) {
	t.Helper()

	for _, event := range []string{"INSERT", "UPDATE"} {
		//nolint:gosec // G202: event comes from a fixed list
		stmt := `CREATE TRIGGER fail_holding_` + event + ` BEFORE ` + event + ` ON holding
			WHEN NEW.symbol = '` + symbol + `'
			BEGIN SELECT RAISE(ABORT, 'simulated holding write failure'); END`
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create failure trigger: %v", err)
		}
	}
}

// CountRows returns the number of rows in a table.
// Useful for assertions in tests.
//
// Example usage:
//
//	count := testutil.CountRows(t, db, "portfolio")
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var count int
	//nolint:gosec // G202: table names come from test code
	query := `SELECT COUNT(*) FROM "` + table + `"`
	err := db.QueryRow(query).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}

	return count
}

// AssertRowCount asserts that a table has the expected number of rows.
//
// Example usage:
//
//	testutil.AssertRowCount(t, db, "portfolio", 2)
func AssertRowCount(t *testing.T, db *sql.DB, table string, expected int) {
	t.Helper()

	actual := CountRows(t, db, table)
	if actual != expected {
		t.Errorf("Expected %d rows in %s, got %d", expected, table, actual)
	}
}
