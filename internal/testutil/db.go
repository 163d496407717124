package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/intelvis/intelvis/internal/server/storage"
)

// TestDB wraps a migrated database for test utilities
type TestDB struct {
	DB *storage.DB
	t  *testing.T
}

// GetTestDB returns a migrated database. It uses a private in-memory SQLite
// database unless TEST_DATABASE_URL points at Postgres, in which case the
// tables are emptied first and the test is skipped if the server is down.
// The database is closed when the test finishes.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	driver, dsn := storage.DriverSQLite, ":memory:"
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		driver, dsn = storage.DriverPostgres, url
	}

	db, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		if driver == storage.DriverPostgres {
			t.Skipf("Skipping test: database not available: %v", err)
		}
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	tdb := &TestDB{DB: db, t: t}
	if driver == storage.DriverPostgres {
		tdb.CleanupTable(ctx, "network_interfaces")
		tdb.CleanupTable(ctx, "devices")
		tdb.CleanupTable(ctx, "users")
	}
	return tdb
}

// CleanupTable deletes all rows from a table. Use with caution.
func (tdb *TestDB) CleanupTable(ctx context.Context, table string) {
	tdb.t.Helper()
	_, err := tdb.DB.ExecContext(ctx, "DELETE FROM "+table)
	if err != nil {
		tdb.t.Logf("Warning: failed to cleanup table %s: %v", table, err)
	}
}

// Exec executes a query, rebound for the driver, and fails the test on error
func (tdb *TestDB) Exec(ctx context.Context, query string, args ...interface{}) {
	tdb.t.Helper()
	_, err := tdb.DB.ExecContext(ctx, tdb.DB.Rebind(query), args...)
	if err != nil {
		tdb.t.Fatalf("Failed to execute query: %v", err)
	}
}

// Repositories creates all standard repositories for testing
func (tdb *TestDB) Repositories() *TestRepositories {
	return &TestRepositories{
		Users:   storage.NewUserRepository(tdb.DB),
		Devices: storage.NewDeviceRepository(tdb.DB),
	}
}

// TestRepositories contains all repositories for testing
type TestRepositories struct {
	Users   *storage.UserRepository
	Devices *storage.DeviceRepository
}
