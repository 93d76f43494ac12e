package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/model"
	"github.com/coleifer/scout/internal/search"
	"github.com/coleifer/scout/internal/validator"
)

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	all, err := s.docs.ListAttachments(doc.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	paginator := search.NewPaginator(s.cfg.PaginateBy)
	page, pages := paginator.Normalize(s.pageFromQuery(q), int64(len(all)))
	start, end := pageBounds(paginator, page, len(all))

	writeJSON(w, http.StatusOK, attachmentListEnvelope{
		Attachments: s.linker.attachments(all[start:end]),
		Ordering:    splitOrdering(q.Get("ordering")),
		Page:        page,
		Pages:       pages,
	})
}

func (s *Server) handleAttachFiles(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := validator.ParseBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()
	if err := validator.RequireKeys(body.Fields, nil, nil); err != nil {
		writeError(w, err)
		return
	}
	if len(body.Files) == 0 {
		writeError(w, apierr.Validation("No file attachments found."))
		return
	}

	created, err := s.attachAll(doc.ID, body.Files)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attachmentsCreatedEnvelope{
		Attachments: s.linker.attachments(created),
	})
}

func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.docs.GetAttachment(doc.ID, r.PathValue("filename"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.linker.attachment(a))
}

func (s *Server) handleReplaceAttachment(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	filename := r.PathValue("filename")
	if _, err := s.docs.GetAttachment(doc.ID, filename); err != nil {
		writeError(w, err)
		return
	}

	body, err := validator.ParseBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()
	if err := validator.RequireKeys(body.Fields, nil, nil); err != nil {
		writeError(w, err)
		return
	}

	switch len(body.Files) {
	case 0:
		writeError(w, apierr.Validation("No file attachment found."))
		return
	case 1:
	default:
		writeError(w, apierr.Validation("Only one attachment permitted when performing update."))
		return
	}

	if err := s.docs.Detach(doc.ID, filename); err != nil {
		writeError(w, err)
		return
	}

	f, err := body.Files[0].Open()
	if err != nil {
		writeError(w, apierr.Validation("failed to read uploaded file %q", body.Files[0].Filename))
		return
	}
	raw, readErr := io.ReadAll(f)
	f.Close()
	if readErr != nil {
		writeError(w, apierr.Validation("failed to read uploaded file %q", body.Files[0].Filename))
		return
	}

	// The replaced attachment keeps the name in the URL regardless of
	// the uploaded file part's own filename.
	a, err := s.docs.Attach(doc.ID, filename, raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.linker.attachment(a))
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.docs.Detach(doc.ID, r.PathValue("filename")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	a, raw, err := s.docs.AttachmentPayload(doc.ID, r.PathValue("filename"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", a.Mimetype)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s", a.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func (s *Server) handleSearchAttachments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	indexIDs, err := s.resolveScopeIndexIDs(q)
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := s.searchRequest(q, indexIDs, true)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.SearchAttachments(req, s.pageFromQuery(q), s.cfg.PaginateBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.attachmentEnvelope(q, req, result))
}

// attachUploadedFiles attaches every file part of a parsed body to
// docID, used by document create/update where files are optional.
func (s *Server) attachUploadedFiles(docID int64, body *validator.ParsedBody) error {
	_, err := s.attachAll(docID, body.Files)
	return err
}

func (s *Server) attachAll(docID int64, files []*multipart.FileHeader) ([]*model.Attachment, error) {
	var created []*model.Attachment
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, apierr.Validation("failed to read uploaded file %q", fh.Filename)
		}
		raw, readErr := io.ReadAll(f)
		f.Close()
		if readErr != nil {
			return nil, apierr.Validation("failed to read uploaded file %q", fh.Filename)
		}
		a, err := s.docs.Attach(docID, fh.Filename, raw)
		if err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	return created, nil
}
