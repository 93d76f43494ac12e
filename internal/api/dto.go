package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coleifer/scout/internal/model"
)

// timestampLayout mirrors the original implementation's `str(datetime)`
// rendering closely enough for API consumers that compare strings.
const timestampLayout = "2006-01-02 15:04:05"

// linker builds the resource URLs embedded in serialized responses,
// honoring the configured URL prefix and appending the API key to
// generated links when authentication is enabled (so a client that
// follows a response's `documents`/`data` URL doesn't immediately hit
// the auth gate).
type linker struct {
	prefix  string
	authKey string
}

func newLinker(prefix, authKey string) *linker {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return &linker{prefix: prefix, authKey: authKey}
}

func (l *linker) path(parts ...string) string {
	p := l.prefix
	for _, part := range parts {
		p += "/" + part
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if l.authKey == "" {
		return p
	}
	return p + "?key=" + url.QueryEscape(l.authKey)
}

func (l *linker) indexURL(name string) string {
	return l.path(name)
}

func (l *linker) documentAttachmentsURL(documentID int64) string {
	return l.path("documents", fmt.Sprintf("%d", documentID), "attachments")
}

func (l *linker) attachmentDownloadURL(documentID int64, filename string) string {
	return l.path("documents", fmt.Sprintf("%d", documentID), "attachments", filename, "download")
}

// indexDTO is the serialized form of model.Index.
type indexDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int64  `json:"document_count"`
	Documents     string `json:"documents"`
}

func (l *linker) index(idx *model.Index) indexDTO {
	return indexDTO{
		ID:            idx.ID,
		Name:          idx.Name,
		DocumentCount: idx.DocumentCount,
		Documents:     l.indexURL(idx.Name),
	}
}

func (l *linker) indexes(idxs []*model.Index) []indexDTO {
	out := make([]indexDTO, len(idxs))
	for i, idx := range idxs {
		out[i] = l.index(idx)
	}
	return out
}

// documentDTO is the serialized form of model.Document.
type documentDTO struct {
	ID          int64             `json:"id"`
	Identifier  string            `json:"identifier,omitempty"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata"`
	Indexes     []string          `json:"indexes"`
	Attachments string            `json:"attachments"`
	Score       *float64          `json:"score,omitempty"`
}

func (l *linker) document(doc *model.Document) documentDTO {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	indexes := doc.Indexes
	if indexes == nil {
		indexes = []string{}
	}
	return documentDTO{
		ID:          doc.ID,
		Identifier:  doc.Identifier,
		Content:     doc.Content,
		Metadata:    metadata,
		Indexes:     indexes,
		Attachments: l.documentAttachmentsURL(doc.ID),
		Score:       doc.Score,
	}
}

func (l *linker) documents(docs []*model.Document) []documentDTO {
	out := make([]documentDTO, len(docs))
	for i, doc := range docs {
		out[i] = l.document(doc)
	}
	return out
}

// attachmentDTO is the serialized form of model.Attachment, scoped to
// a single document (whose id is already in the URL path).
type attachmentDTO struct {
	Filename   string `json:"filename"`
	Mimetype   string `json:"mimetype"`
	Timestamp  string `json:"timestamp"`
	DataLength int64  `json:"data_length"`
	Data       string `json:"data"`
}

func (l *linker) attachment(a *model.Attachment) attachmentDTO {
	return attachmentDTO{
		Filename:   a.Filename,
		Mimetype:   a.Mimetype,
		Timestamp:  a.Timestamp.Format(timestampLayout),
		DataLength: a.DataLength,
		Data:       l.attachmentDownloadURL(a.DocumentID, a.Filename),
	}
}

func (l *linker) attachments(as []*model.Attachment) []attachmentDTO {
	out := make([]attachmentDTO, len(as))
	for i, a := range as {
		out[i] = l.attachment(a)
	}
	return out
}

// attachmentHitDTO is the serialized form of model.AttachmentHit, used
// by the cross-document attachment search endpoint.
type attachmentHitDTO struct {
	DocumentID int64    `json:"document_id"`
	Filename   string   `json:"filename"`
	Mimetype   string   `json:"mimetype"`
	Timestamp  string   `json:"timestamp"`
	DataLength int64    `json:"data_length"`
	Data       string   `json:"data"`
	Score      *float64 `json:"score,omitempty"`
}

func (l *linker) attachmentHit(h *model.AttachmentHit) attachmentHitDTO {
	return attachmentHitDTO{
		DocumentID: h.DocumentID,
		Filename:   h.Filename,
		Mimetype:   h.Mimetype,
		Timestamp:  h.Timestamp.Format(timestampLayout),
		DataLength: h.DataLength,
		Data:       l.attachmentDownloadURL(h.DocumentID, h.Filename),
		Score:      h.Score,
	}
}

func (l *linker) attachmentHits(hits []*model.AttachmentHit) []attachmentHitDTO {
	out := make([]attachmentHitDTO, len(hits))
	for i, h := range hits {
		out[i] = l.attachmentHit(h)
	}
	return out
}

// searchEnvelope is the common shape returned by every search-backed
// endpoint. Ranking and SearchTerm are pointers so they can be omitted
// entirely (not just left as a zero value) when the search phrase was
// blank, matching the documented contract.
type searchEnvelope struct {
	DocumentCount int64               `json:"document_count"`
	FilteredCount int64               `json:"filtered_count"`
	Documents     []documentDTO       `json:"documents"`
	Page          int                 `json:"page"`
	Pages         int                 `json:"pages"`
	Filters       map[string][]string `json:"filters"`
	Ordering      []string            `json:"ordering"`
	Ranking       *string             `json:"ranking,omitempty"`
	SearchTerm    *string             `json:"search_term,omitempty"`
}

// attachmentSearchEnvelope is the cross-document attachment search
// response shape: same search inputs, attachment rows instead of
// document rows, and an attachment_count in place of document_count.
type attachmentSearchEnvelope struct {
	AttachmentCount int64               `json:"attachment_count"`
	FilteredCount   int64               `json:"filtered_count"`
	Attachments     []attachmentHitDTO  `json:"attachments"`
	Page            int                 `json:"page"`
	Pages           int                 `json:"pages"`
	Filters         map[string][]string `json:"filters"`
	Ordering        []string            `json:"ordering"`
	Ranking         *string             `json:"ranking,omitempty"`
	SearchTerm      *string             `json:"search_term,omitempty"`
}

// indexDetailEnvelope merges an index's own fields with the search
// envelope scoped to its membership — the document_count/documents
// keys the embedded envelope carries replace the plain ones a bare
// index listing would show.
type indexDetailEnvelope struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	searchEnvelope
}

// indexListEnvelope is the "/" GET response: every index plus its own
// document_count and documents URL, no search inputs involved.
type indexListEnvelope struct {
	Indexes  []indexDTO `json:"indexes"`
	Ordering []string   `json:"ordering"`
	Page     int        `json:"page"`
	Pages    int        `json:"pages"`
}

// attachmentListEnvelope is the per-document attachment listing shape.
type attachmentListEnvelope struct {
	Attachments []attachmentDTO `json:"attachments"`
	Ordering    []string        `json:"ordering"`
	Page        int             `json:"page"`
	Pages       int             `json:"pages"`
}

// attachmentsCreatedEnvelope is returned after attaching one or more
// files: just the new rows, unpaginated.
type attachmentsCreatedEnvelope struct {
	Attachments []attachmentDTO `json:"attachments"`
}
