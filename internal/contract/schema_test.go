// ABOUTME: Contract tests for database schema to detect breaking schema changes.
// ABOUTME: Validates that the kv table and its columns exist under both SQLite drivers.

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/store"
)

// expectedSchema defines the contract for our database schema.
// Existing chat.db files written by earlier builds must stay readable.
var expectedSchema = map[string][]string{
	"kv": {"key", "value", "updated_at"},
}

// setupTestDB creates a temporary SQLite database with the production schema.
func setupTestDB(t *testing.T, driver string) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	// Use the store package to create the database with proper schema
	sqliteStore, err := store.OpenSQLite(driver, dbPath)
	require.NoError(t, err, "failed to create SQLite store")

	// The store owns its connection, so inspect through a second one
	db, err := sql.Open(driver, dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		sqliteStore.Close()
	})

	return db
}

// getTableColumns queries SQLite to get column names for a table.
func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		columns[name] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}

	return columns, nil
}

// TestSchemaSurface verifies that all expected tables and columns exist
// for each supported driver.
func TestSchemaSurface(t *testing.T) {
	for _, driver := range []string{store.DriverSQLite, store.DriverSQLite3} {
		t.Run(driver, func(t *testing.T) {
			db := setupTestDB(t, driver)
			ctx := context.Background()

			for table, expectedCols := range expectedSchema {
				actualCols, err := getTableColumns(ctx, db, table)
				if !assert.NoError(t, err, "failed to get columns for table %s", table) {
					continue
				}
				if !assert.NotEmpty(t, actualCols, "table %s should exist and have columns", table) {
					continue
				}

				for _, col := range expectedCols {
					assert.True(t, actualCols[col], "column %s.%s should exist", table, col)
				}

				// Report any extra columns not in contract (informational, not failure)
				for col := range actualCols {
					if !slices.Contains(expectedCols, col) {
						t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
					}
				}
			}
		})
	}
}

// TestValuesReadableAcrossDrivers checks that a database written with one
// driver can be read back with the other.
func TestValuesReadableAcrossDrivers(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	writer, err := store.OpenSQLite(store.DriverSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, writer.Put(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, writer.Close())

	reader, err := store.OpenSQLite(store.DriverSQLite3, dbPath)
	require.NoError(t, err)
	defer reader.Close()

	got, err := reader.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}
