package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema_CreatesAllTables(t *testing.T) {
	db := NewTestDBMinimal(t)

	err := CreateSchema(db, Options{SearchExtension: "FTS5", Stem: "porter"})
	require.NoError(t, err)

	tables := []string{
		"main_document", "main_index", "main_index_document",
		"main_metadata", "attachment", "blobdata", "scout_metadata",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestCreateSchema_FailsOnSecondRun(t *testing.T) {
	db := NewTestDBMinimal(t)

	require.NoError(t, CreateSchema(db, defaultTestOptions))
	err := CreateSchema(db, defaultTestOptions)
	assert.Error(t, err, "schema creation is not meant to be re-run against an existing database")
}

func TestCreateSchema_EnforcesIndexNameUniqueness(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec("INSERT INTO main_index (name) VALUES ('idx-a')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO main_index (name) VALUES ('idx-a')")
	assert.Error(t, err)
}

func TestCreateSchema_EnforcesMetadataKeyUniqueness(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.Exec("INSERT INTO main_document (rowid, content, identifier) VALUES (1, 'hello', '')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO main_metadata (document_id, key, value) VALUES (1, 'k1', 'v1')")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO main_metadata (document_id, key, value) VALUES (1, 'k1', 'v2')")
	assert.Error(t, err)
}

func TestGetSchemaVersion_NewDatabase(t *testing.T) {
	db := NewTestDBMinimal(t)

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "0", version)
}

func TestGetSchemaVersion_AfterCreate(t *testing.T) {
	db := NewTestDB(t)

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestDocumentTableDDL_SelectsTokenizerByEngine(t *testing.T) {
	ddl := documentTableDDL(Options{SearchExtension: "FTS5", Stem: "simple"})
	assert.Contains(t, ddl, "fts5")
	assert.Contains(t, ddl, "unicode61")
	assert.NotContains(t, ddl, "porter unicode61")

	ddl = documentTableDDL(Options{SearchExtension: "FTS5", Stem: "porter"})
	assert.Contains(t, ddl, "porter unicode61")

	ddl = documentTableDDL(Options{SearchExtension: "FTS3", Stem: "porter"})
	assert.Contains(t, ddl, "fts3")
}

func TestDetectSearchExtension_ReturnsCompiledTier(t *testing.T) {
	db := NewTestDBMinimal(t)

	ext, err := DetectSearchExtension(db)
	require.NoError(t, err)
	assert.Contains(t, []string{"FTS5", "FTS4", "FTS3"}, ext)
}

func TestGetSearchExtension_ReadsBootstrappedValue(t *testing.T) {
	db := NewTestDB(t)

	ext, err := GetSearchExtension(db)
	require.NoError(t, err)
	assert.Equal(t, "FTS5", ext)
}

func TestApplyPragmas(t *testing.T) {
	db := NewTestDB(t)

	// :memory: databases always report journal_mode=memory regardless of
	// what is requested, so this only asserts the pragmas apply cleanly.
	err := ApplyPragmas(db, defaultTestOptions, "WAL", 32, 0)
	require.NoError(t, err)

	var syncMode int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&syncMode))
	assert.Equal(t, 0, syncMode)
}
