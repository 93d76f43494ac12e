package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// defaultTestOptions pins FTS5 + porter rather than auto-detecting the
// tier as production does; tests that need FTS3/FTS4 behavior
// construct Options explicitly.
var defaultTestOptions = Options{SearchExtension: "FTS5", Stem: "porter"}

// NewTestDB creates a fully configured in-memory SQLite database for
// testing: foreign keys on, full schema created, automatic cleanup.
//
// This is the standard test database helper - use it for most tests.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	err = CreateSchema(db, defaultTestOptions)
	require.NoError(t, err)

	return db
}

// NewTestDBFile creates a file-based SQLite database in t.TempDir().
// Use this to test persistence across connections or file operations.
func NewTestDBFile(t testing.TB) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open(DriverName, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	err = CreateSchema(db, defaultTestOptions)
	require.NoError(t, err)

	return db
}

// NewTestDBMinimal creates an in-memory SQLite database without
// schema, for tests that exercise CreateSchema itself.
func NewTestDBMinimal(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	return db
}
