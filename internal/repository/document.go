// Package repository bridges the Document/Index/Metadata/Attachment
// domain entities to SQL, implementing the invariants in Scout's data
// model: metadata replace-by-key, idempotent index membership,
// cascading document delete, and filename-normalized attachments.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/blobstore"
	"github.com/coleifer/scout/internal/model"
)

// DocumentRepository is the sole write/read path to documents,
// metadata, index membership, and attachments.
type DocumentRepository struct {
	db    *sql.DB
	blobs *blobstore.Store
}

// New builds a DocumentRepository over db, storing attachment payloads
// through blobs.
func New(db *sql.DB, blobs *blobstore.Store) *DocumentRepository {
	return &DocumentRepository{db: db, blobs: blobs}
}

// CreateDocument inserts a new main_document row and returns its
// assigned row id.
func (r *DocumentRepository) CreateDocument(content, identifier string) (int64, error) {
	res, err := r.db.Exec("INSERT INTO main_document (rowid, content, identifier) VALUES (NULL, ?, ?)", content, identifier)
	if err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to create document: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to read new document id: %w", err))
	}
	return id, nil
}

// GetDocument loads the full serialized view of a document by row id,
// including metadata and index membership. Returns NotFound if absent.
func (r *DocumentRepository) GetDocument(id int64) (*model.Document, error) {
	doc := &model.Document{ID: id}
	err := r.db.QueryRow("SELECT content, identifier FROM main_document WHERE rowid = ?", id).
		Scan(&doc.Content, &doc.Identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("document not found")
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to load document: %w", err))
	}

	meta, err := r.GetMetadata(id)
	if err != nil {
		return nil, err
	}
	doc.Metadata = meta

	names, err := r.documentIndexNames(id)
	if err != nil {
		return nil, err
	}
	doc.Indexes = names

	return doc, nil
}

// GetDocumentByIdentifier finds a document by its identifier column.
// Returns NotFound if no document carries that identifier.
func (r *DocumentRepository) GetDocumentByIdentifier(identifier string) (*model.Document, error) {
	var id int64
	err := r.db.QueryRow("SELECT rowid FROM main_document WHERE identifier = ?", identifier).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("document not found")
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to look up document by identifier: %w", err))
	}
	return r.GetDocument(id)
}

// LookupDocument resolves an id_or_identifier URL token: an all-digit
// token is tried as a primary key first, falling back to identifier
// lookup only if that fails to parse or find a row. Any other token is
// treated as an identifier directly.
func (r *DocumentRepository) LookupDocument(token string) (*model.Document, error) {
	if isAllDigits(token) {
		var id int64
		fmt.Sscanf(token, "%d", &id)
		doc, err := r.GetDocument(id)
		if err == nil {
			return doc, nil
		}
		var apiErr *apierr.Error
		if !errors.As(err, &apiErr) || apiErr.Kind != apierr.KindNotFound {
			return nil, err
		}
	}
	return r.GetDocumentByIdentifier(token)
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

func isAllDigits(s string) bool {
	return s != "" && digitsOnly.MatchString(s)
}

// UpdateDocument applies only the provided fields. Pass nil for a
// field to leave it unchanged.
func (r *DocumentRepository) UpdateDocument(id int64, content, identifier *string) error {
	if content == nil && identifier == nil {
		return nil
	}
	var err error
	switch {
	case content != nil && identifier != nil:
		_, err = r.db.Exec("UPDATE main_document SET content = ?, identifier = ? WHERE rowid = ?", *content, *identifier, id)
	case content != nil:
		_, err = r.db.Exec("UPDATE main_document SET content = ? WHERE rowid = ?", *content, id)
	case identifier != nil:
		_, err = r.db.Exec("UPDATE main_document SET identifier = ? WHERE rowid = ?", *identifier, id)
	}
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to update document: %w", err))
	}
	return nil
}

// SetMetadata replaces the full key set for a document: every prior
// row is cleared, then every provided pair is upserted keyed on
// (document_id, key), all inside one transaction.
func (r *DocumentRepository) SetMetadata(id int64, meta map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to begin metadata transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM main_metadata WHERE document_id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to clear metadata: %w", err))
	}

	for k, v := range meta {
		_, err := tx.Exec(`
			INSERT INTO main_metadata (document_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(document_id, key) DO UPDATE SET value = excluded.value
		`, id, k, v)
		if err != nil {
			return apierr.Engine(fmt.Errorf("failed to upsert metadata key %q: %w", k, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apierr.Engine(fmt.Errorf("failed to commit metadata transaction: %w", err))
	}
	return nil
}

// GetMetadata returns the full key/value mapping for a document.
func (r *DocumentRepository) GetMetadata(id int64) (map[string]string, error) {
	rows, err := r.db.Query("SELECT key, value FROM main_metadata WHERE document_id = ?", id)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to query metadata: %w", err))
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, apierr.Engine(fmt.Errorf("failed to scan metadata row: %w", err))
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to iterate metadata: %w", err))
	}
	return meta, nil
}

// AddToIndex links a document into an index. Duplicate calls for the
// same (index, document) pair are a silent no-op (I3).
func (r *DocumentRepository) AddToIndex(documentID, indexID int64) error {
	_, err := r.db.Exec("INSERT INTO main_index_document (index_id, document_id) VALUES (?, ?)", indexID, documentID)
	if err != nil && !isUniqueConstraintErr(err) {
		return apierr.Engine(fmt.Errorf("failed to add document to index: %w", err))
	}
	return nil
}

// ReplaceIndexes atomically replaces a document's full index
// membership set.
func (r *DocumentRepository) ReplaceIndexes(documentID int64, indexIDs []int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to begin index-membership transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM main_index_document WHERE document_id = ?", documentID); err != nil {
		return apierr.Engine(fmt.Errorf("failed to clear index membership: %w", err))
	}

	for _, indexID := range indexIDs {
		_, err := tx.Exec("INSERT INTO main_index_document (index_id, document_id) VALUES (?, ?)", indexID, documentID)
		if err != nil {
			return apierr.Engine(fmt.Errorf("failed to insert index membership: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apierr.Engine(fmt.Errorf("failed to commit index-membership transaction: %w", err))
	}
	return nil
}

// DeleteDocument transactionally removes IndexDocument, Attachment,
// Metadata, then Document rows for id, and no others (I6).
func (r *DocumentRepository) DeleteDocument(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to begin delete transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM main_index_document WHERE document_id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete index membership: %w", err))
	}
	if _, err := tx.Exec("DELETE FROM attachment WHERE document_id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete attachments: %w", err))
	}
	if _, err := tx.Exec("DELETE FROM main_metadata WHERE document_id = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete metadata: %w", err))
	}
	if _, err := tx.Exec("DELETE FROM main_document WHERE rowid = ?", id); err != nil {
		return apierr.Engine(fmt.Errorf("failed to delete document: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return apierr.Engine(fmt.Errorf("failed to commit delete transaction: %w", err))
	}
	return nil
}

func (r *DocumentRepository) documentIndexNames(documentID int64) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT main_index.name FROM main_index
		INNER JOIN main_index_document ON main_index_document.index_id = main_index.id
		WHERE main_index_document.document_id = ?
		ORDER BY main_index.name
	`, documentID)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to query document indexes: %w", err))
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apierr.Engine(fmt.Errorf("failed to scan index name: %w", err))
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename strips path components and replaces unsafe
// characters with underscores, preserving the extension.
func SanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "\\", "_")
	return unsafeFilenameChars.ReplaceAllString(base, "_")
}

// GuessMimetype infers a mimetype from a filename's extension,
// defaulting to text/plain when unknown.
func GuessMimetype(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "text/plain"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if idx := strings.Index(t, ";"); idx != -1 {
			t = t[:idx]
		}
		return strings.TrimSpace(t)
	}
	return "text/plain"
}

// Attach normalizes filename, stores raw via the blob store, and
// inserts or updates the Attachment row (I4: re-attaching the same
// filename updates hash and mimetype in place).
func (r *DocumentRepository) Attach(documentID int64, filename string, raw []byte) (*model.Attachment, error) {
	safeName := SanitizeFilename(filename)
	hash, err := r.blobs.Put(raw)
	if err != nil {
		return nil, err
	}
	mimetype := GuessMimetype(safeName)
	now := time.Now().UTC()

	_, err = r.db.Exec(`
		INSERT INTO attachment (document_id, filename, hash, mimetype, timestamp) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id, filename) DO UPDATE SET hash = excluded.hash, mimetype = excluded.mimetype, timestamp = excluded.timestamp
	`, documentID, safeName, hash, mimetype, now.Format(time.RFC3339))
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to attach file: %w", err))
	}

	return &model.Attachment{
		DocumentID: documentID,
		Filename:   safeName,
		Hash:       hash,
		Mimetype:   mimetype,
		Timestamp:  now,
		DataLength: int64(len(raw)),
	}, nil
}

// Detach removes the Attachment row only; the BlobData row is
// intentionally retained (no reference counting, see design notes).
func (r *DocumentRepository) Detach(documentID int64, filename string) error {
	res, err := r.db.Exec("DELETE FROM attachment WHERE document_id = ? AND filename = ?", documentID, filename)
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to detach file: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apierr.Engine(fmt.Errorf("failed to read affected rows: %w", err))
	}
	if n == 0 {
		return apierr.NotFound("attachment not found")
	}
	return nil
}

// GetAttachment loads one attachment's metadata, joined with its blob
// size so callers can report data_length without a second round trip.
func (r *DocumentRepository) GetAttachment(documentID int64, filename string) (*model.Attachment, error) {
	a := &model.Attachment{DocumentID: documentID, Filename: filename}
	var ts string
	err := r.db.QueryRow(`
		SELECT attachment.hash, attachment.mimetype, attachment.timestamp, blobdata.length
		FROM attachment
		INNER JOIN blobdata ON blobdata.hash = attachment.hash
		WHERE attachment.document_id = ? AND attachment.filename = ?
	`, documentID, filename).Scan(&a.Hash, &a.Mimetype, &ts, &a.DataLength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("attachment not found")
	}
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to load attachment: %w", err))
	}
	a.Timestamp, _ = time.Parse(time.RFC3339, ts)
	return a, nil
}

// ListAttachments returns every attachment for a document, ordered by
// filename, joined with blobdata for payload byte length.
func (r *DocumentRepository) ListAttachments(documentID int64) ([]*model.Attachment, error) {
	rows, err := r.db.Query(`
		SELECT attachment.filename, attachment.hash, attachment.mimetype, attachment.timestamp, blobdata.length
		FROM attachment
		INNER JOIN blobdata ON blobdata.hash = attachment.hash
		WHERE attachment.document_id = ?
		ORDER BY attachment.filename
	`, documentID)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to list attachments: %w", err))
	}
	defer rows.Close()

	var out []*model.Attachment
	for rows.Next() {
		a := &model.Attachment{DocumentID: documentID}
		var ts string
		if err := rows.Scan(&a.Filename, &a.Hash, &a.Mimetype, &ts, &a.DataLength); err != nil {
			return nil, apierr.Engine(fmt.Errorf("failed to scan attachment row: %w", err))
		}
		a.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttachmentPayload fetches the decompressed bytes for an attachment.
func (r *DocumentRepository) AttachmentPayload(documentID int64, filename string) (*model.Attachment, []byte, error) {
	a, err := r.GetAttachment(documentID, filename)
	if err != nil {
		return nil, nil, err
	}
	raw, err := r.blobs.Get(a.Hash)
	if err != nil {
		return nil, nil, err
	}
	a.DataLength = int64(len(raw))
	return a, raw, nil
}

func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
