package storage

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
)

// Open opens the embedded database at path, creating Scout's schema on
// first run and applying the configured startup pragmas. The special
// path ":memory:" is capped at a single connection: SQLite gives every
// new connection its own private in-memory database, so a pool would
// silently lose state between requests.
func Open(path string, opts Options, journalMode string, cacheSizeMB float64, synchronous int) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		// A file-backed *sql.DB pools multiple physical connections. A
		// PRAGMA issued through db.Exec only lands on whichever
		// connection the pool happens to hand out, leaving later
		// connections opened under load with SQLite's own defaults
		// instead of the configured journal mode/synchronous/foreign
		// keys. Encoding the pragmas in the DSN makes the driver apply
		// them on every new connection it opens.
		dsn = path + "?" + pragmaDSNParams(journalMode, cacheSizeMB, synchronous).Encode()
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := ApplyPragmas(db, opts, journalMode, cacheSizeMB, synchronous); err != nil {
		db.Close()
		return nil, err
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect schema version: %w", err)
	}
	if version == "0" {
		if opts.SearchExtension == "" {
			detected, err := DetectSearchExtension(db)
			if err != nil {
				db.Close()
				return nil, err
			}
			opts.SearchExtension = detected
		}
		if err := CreateSchema(db, opts); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return db, nil
}

// pragmaDSNParams renders the startup pragmas as mattn/go-sqlite3's
// DSN query parameters, the driver's own mechanism for applying a
// pragma to every connection it opens rather than just the one an
// Exec call happens to run against.
func pragmaDSNParams(journalMode string, cacheSizeMB float64, synchronous int) url.Values {
	syncNames := []string{"OFF", "NORMAL", "FULL", "EXTRA"}
	syncName := "NORMAL"
	if synchronous >= 0 && synchronous < len(syncNames) {
		syncName = syncNames[synchronous]
	}
	cacheKiB := -int64(cacheSizeMB * 1024)

	v := url.Values{}
	v.Set("_journal_mode", journalMode)
	v.Set("_synchronous", syncName)
	v.Set("_foreign_keys", "true")
	v.Set("_cache_size", strconv.FormatInt(cacheKiB, 10))
	return v
}
