package blobstore

import (
	"fmt"

	"github.com/coleifer/scout/internal/apierr"
)

// Orphan describes a BlobData row no Attachment currently references.
// Scout never garbage-collects these automatically (design note:
// "content-addressed blobs without reference counting") — Orphan
// exists purely so an operator-triggered sweep can report, and
// optionally clear, the accumulated garbage.
type Orphan struct {
	Hash   string
	Length int64
}

// ListOrphans returns every BlobData row whose hash no Attachment
// references, ordered by hash for stable sweep output.
func (s *Store) ListOrphans() ([]Orphan, error) {
	rows, err := s.db.Query(`
		SELECT blobdata.hash, blobdata.length
		FROM blobdata
		WHERE NOT EXISTS (
			SELECT 1 FROM attachment WHERE attachment.hash = blobdata.hash
		)
		ORDER BY blobdata.hash
	`)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to list orphan blobs: %w", err))
	}
	defer rows.Close()

	var out []Orphan
	for rows.Next() {
		var o Orphan
		if err := rows.Scan(&o.Hash, &o.Length); err != nil {
			return nil, apierr.Engine(fmt.Errorf("failed to scan orphan blob: %w", err))
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteOrphan removes a single BlobData row by hash and evicts it
// from the read cache. Callers sweep one hash at a time so a partial
// failure mid-sweep still leaves earlier deletions committed.
func (s *Store) DeleteOrphan(hash string) error {
	if _, err := s.db.Exec("DELETE FROM blobdata WHERE hash = ?", hash); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete orphan blob %s: %w", hash, err))
	}
	s.cache.Delete(hash)
	return nil
}
