// Package blobstore implements Scout's content-addressed attachment
// storage: payloads are keyed by the base64 SHA-256 of their raw
// bytes, stored zlib-compressed, and deduplicated optimistically by
// tolerating the primary-key conflict rather than pre-checking.
package blobstore

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/maypok86/otter"

	"github.com/coleifer/scout/internal/apierr"
)

// compressionLevel matches the original implementation's zlib level 6.
const compressionLevel = 6

// cacheWeight bounds the hot-blob cache at roughly 64MB of decompressed
// payload, approximated by byte length.
const cacheWeight = 64 * 1024 * 1024

// Store is the content-addressed blob store. It wraps a SQL connection
// and an in-process read cache so repeatedly-downloaded attachments
// skip decompression.
type Store struct {
	db    *sql.DB
	cache otter.Cache[string, []byte]
}

// New builds a Store backed by db, with an LRU cache of decompressed
// payloads sized by cacheWeight.
func New(db *sql.DB) (*Store, error) {
	cache, err := otter.MustBuilder[string, []byte](cacheWeight).
		Cost(func(hash string, data []byte) uint32 {
			return uint32(len(data))
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob cache: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

// Hash computes the content address for raw bytes: base64 of its
// SHA-256 digest.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Put stores raw, returning its content hash. If a BlobData row with
// that hash already exists, the insert's unique-constraint violation
// is treated as success: the payload is already present. Exactly one
// insert is attempted per call; there is no pre-read check.
func (s *Store) Put(raw []byte) (string, error) {
	hash := Hash(raw)

	var compressed bytes.Buffer
	lw, err := zlib.NewWriterLevel(&compressed, compressionLevel)
	if err != nil {
		return "", apierr.Engine(fmt.Errorf("failed to build zlib writer: %w", err))
	}
	if _, err := lw.Write(raw); err != nil {
		return "", apierr.Engine(fmt.Errorf("failed to compress blob: %w", err))
	}
	if err := lw.Close(); err != nil {
		return "", apierr.Engine(fmt.Errorf("failed to finalize blob compression: %w", err))
	}

	_, err = s.db.Exec("INSERT INTO blobdata (hash, data, length) VALUES (?, ?, ?)", hash, compressed.Bytes(), len(raw))
	if err != nil && !isUniqueConstraintErr(err) {
		return "", apierr.Engine(fmt.Errorf("failed to insert blob: %w", err))
	}

	s.cache.Set(hash, raw)
	return hash, nil
}

// Get retrieves and decompresses the payload for hash. A missing hash
// is a NotFound domain error.
func (s *Store) Get(hash string) ([]byte, error) {
	if raw, ok := s.cache.Get(hash); ok {
		return raw, nil
	}

	var compressed []byte
	err := s.db.QueryRow("SELECT data FROM blobdata WHERE hash = ?", hash).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("attachment data not found")
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to query blob: %w", err))
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to open zlib reader: %w", err))
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to decompress blob: %w", err))
	}

	s.cache.Set(hash, raw)
	return raw, nil
}

// isUniqueConstraintErr reports whether err is a SQLite UNIQUE or
// PRIMARY KEY constraint violation. Scout never imports the sqlite3
// driver's error type directly here so the check stays a plain string
// match against the driver's documented message shape.
func isUniqueConstraintErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}
