// Package storage owns the physical schema in the embedded SQLite
// database: the FTS virtual table backing documents, the supporting
// relational tables, and the startup pragmas.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Options selects the FTS engine variant and tokenizer used to create
// the document virtual table. The choice is made once at startup;
// changing it later requires rebuilding the table.
type Options struct {
	// SearchExtension is one of "FTS5", "FTS4", "FTS3", or "" to probe
	// the compiled-in driver for the best available tier.
	SearchExtension string
	// Stem is one of "porter", "simple".
	Stem string
}

// DetectSearchExtension probes the driver's compile-time options for the
// best available FTS virtual table module, preferring FTS5, then FTS4,
// then FTS3. mattn/go-sqlite3 compiles in FTS3 and FTS4 by default and
// gates FTS5 behind the sqlite_fts5/fts5 build tag (see
// sqlite_fts5.go), so a plain `go build` only ever reports FTS4 here.
func DetectSearchExtension(db *sql.DB) (string, error) {
	for _, ext := range []string{"FTS5", "FTS4", "FTS3"} {
		used, err := compileOptionUsed(db, "ENABLE_"+ext)
		if err != nil {
			return "", err
		}
		if used {
			return ext, nil
		}
	}
	return "", fmt.Errorf("sqlite driver was compiled without FTS3, FTS4, or FTS5 support")
}

func compileOptionUsed(db *sql.DB, option string) (bool, error) {
	var used int
	if err := db.QueryRow("SELECT sqlite_compileoption_used(?)", option).Scan(&used); err != nil {
		return false, fmt.Errorf("failed to probe sqlite compile option %s: %w", option, err)
	}
	return used == 1, nil
}

// CreateSchema creates all tables and the document virtual table.
// Table creation is transactional: either every table is created or
// none are. The virtual table's own extension (FTS5/FTS4/FTS3) must
// already be compiled into the driver; its absence is a startup-fatal
// error surfaced by the DDL failing.
func CreateSchema(db *sql.DB, opts Options) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"main_document", documentTableDDL(opts)},
		{"main_index", createIndexTable},
		{"main_index_document", createIndexDocumentTable},
		{"main_metadata", createMetadataTable},
		{"blobdata", createBlobDataTable},
		{"attachment", createAttachmentTable},
		{"scout_metadata", createScoutMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	bootstrapSQL := `
		INSERT INTO scout_metadata (key, value, updated_at) VALUES
			('schema_version', '1', ?),
			('search_extension', ?, ?),
			('stem', ?, ?)
		ON CONFLICT(key) DO NOTHING
	`
	if _, err := tx.Exec(bootstrapSQL, now, opts.SearchExtension, now, opts.Stem, now); err != nil {
		return fmt.Errorf("failed to bootstrap scout_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// documentTableDDL builds the CREATE VIRTUAL TABLE statement for
// main_document, selecting tokenizer and prefix support by engine.
// FTS5 gets porter/unicode61 composition and prefix indexes on 2 and 3
// character terms; FTS4 gets the porter tokenizer (unicode61 for the
// simple stem) and no prefix option; FTS3 has neither and is the
// fallback when neither FTS5 nor FTS4 is compiled in.
func documentTableDDL(opts Options) string {
	stem := strings.ToLower(opts.Stem)
	ext := strings.ToUpper(opts.SearchExtension)

	switch ext {
	case "FTS5":
		tokenizer := "unicode61"
		if stem == "porter" {
			tokenizer = "porter unicode61"
		}
		return fmt.Sprintf(`
CREATE VIRTUAL TABLE main_document USING fts5(
    content,
    identifier,
    tokenize = '%s',
    prefix = '2 3'
)`, tokenizer)
	case "FTS4":
		tokenizer := "unicode61"
		if stem == "porter" {
			tokenizer = "porter"
		}
		return fmt.Sprintf(`
CREATE VIRTUAL TABLE main_document USING fts4(
    content,
    identifier,
    tokenize = %s
)`, tokenizer)
	default:
		return `
CREATE VIRTUAL TABLE main_document USING fts3(
    content,
    identifier
)`
	}
}

const createIndexTable = `
CREATE TABLE main_index (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
)
`

const createIndexDocumentTable = `
CREATE TABLE main_index_document (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    index_id INTEGER NOT NULL,
    document_id INTEGER NOT NULL,
    FOREIGN KEY (index_id) REFERENCES main_index(id) ON DELETE CASCADE,
    UNIQUE(index_id, document_id)
)
`

const createMetadataTable = `
CREATE TABLE main_metadata (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    UNIQUE(document_id, key)
)
`

const createBlobDataTable = `
CREATE TABLE blobdata (
    hash TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    length INTEGER NOT NULL
)
`

const createAttachmentTable = `
CREATE TABLE attachment (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    filename TEXT NOT NULL,
    hash TEXT NOT NULL,
    mimetype TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    FOREIGN KEY (hash) REFERENCES blobdata(hash),
    UNIQUE(document_id, filename)
)
`

const createScoutMetadataTable = `
CREATE TABLE scout_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all non-unique index creation statements; the
// UNIQUE constraints above already create their own covering indexes.
func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_index_document_document ON main_index_document(document_id)",
		"CREATE INDEX idx_metadata_document ON main_metadata(document_id)",
		"CREATE INDEX idx_metadata_key ON main_metadata(key)",
		"CREATE INDEX idx_attachment_document ON attachment(document_id)",
		"CREATE INDEX idx_attachment_hash ON attachment(hash)",
	}
}

// GetSchemaVersion retrieves the schema version from scout_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='scout_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check scout_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM scout_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in scout_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// GetSearchExtension retrieves the FTS engine variant a database was
// created with from scout_metadata. This is the resolved value even
// when the database was created with Options.SearchExtension left
// blank for auto-detection, so callers should use this instead of the
// configuration's own (possibly blank) SearchExtension field.
func GetSearchExtension(db *sql.DB) (string, error) {
	var ext string
	err := db.QueryRow("SELECT value FROM scout_metadata WHERE key = 'search_extension'").Scan(&ext)
	if err != nil {
		return "", fmt.Errorf("failed to query search extension: %w", err)
	}
	return ext, nil
}

// ApplyPragmas applies the startup pragmas in the order the schema
// documentation prescribes: journal mode, cache size, synchronous.
// These favor throughput over crash durability by default.
func ApplyPragmas(db *sql.DB, cfg Options, journalMode string, cacheSizeMB float64, synchronous int) error {
	_ = cfg // engine variant does not affect pragma application
	if _, err := db.Exec(fmt.Sprintf("PRAGMA journal_mode = %s", journalMode)); err != nil {
		return fmt.Errorf("failed to set journal_mode: %w", err)
	}

	cacheKiB := -int64(cacheSizeMB * 1024)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size = %d", cacheKiB)); err != nil {
		return fmt.Errorf("failed to set cache_size: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA synchronous = %d", synchronous)); err != nil {
		return fmt.Errorf("failed to set synchronous: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return nil
}
