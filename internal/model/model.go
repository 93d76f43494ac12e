// Package model holds the domain entities shared across storage, search,
// and the REST surface.
package model

import "time"

// Index is a named logical grouping of documents — the search-scope unit.
type Index struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
}

// Document is a row of the content/identifier full-text table.
type Document struct {
	ID         int64             `json:"id"`
	Content    string            `json:"content"`
	Identifier string            `json:"identifier,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	Indexes    []string          `json:"indexes"`
	// Score is populated only for ranked search results.
	Score *float64 `json:"score,omitempty"`
}

// Metadata is a single (document_id, key) -> value attribute.
type Metadata struct {
	DocumentID int64
	Key        string
	Value      string
}

// Attachment is a named binary payload linked to a document via a
// content-addressed blob.
type Attachment struct {
	ID         int64     `json:"-"`
	DocumentID int64     `json:"-"`
	Filename   string    `json:"filename"`
	Hash       string    `json:"-"`
	Mimetype   string    `json:"mimetype"`
	Timestamp  time.Time `json:"timestamp"`
	DataLength int64     `json:"data_length"`
}

// AttachmentHit is one row of a cross-document attachment search: an
// Attachment joined back to the Document that owns it.
type AttachmentHit struct {
	DocumentID int64
	Filename   string
	Mimetype   string
	Timestamp  time.Time
	DataLength int64
	Score      *float64
}
