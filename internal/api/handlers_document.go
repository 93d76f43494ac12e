package api

import (
	"net/http"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/validator"
)

func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
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
	result, err := s.engine.Search(req, s.pageFromQuery(q), s.cfg.PaginateBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.documentEnvelope(q, req, result))
}

// resolveScopeIndexIDs turns a repeatable `index=` query parameter
// into the index-id scope search.Request expects. No `index` params
// means global scope.
func (s *Server) resolveScopeIndexIDs(q map[string][]string) ([]int64, error) {
	names := q["index"]
	if len(names) == 0 {
		return nil, nil
	}
	idxs, err := s.indexes.ResolveNames(names)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(idxs))
	for i, idx := range idxs {
		ids[i] = idx.ID
	}
	return ids, nil
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	body, err := validator.ParseBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	if err := validator.RequireKeys(body.Fields, []string{"content"},
		[]string{"identifier", "index", "indexes", "metadata"}); err != nil {
		writeError(w, err)
		return
	}

	names, present, err := validator.ResolveIndexMembership(body.Fields, s.indexes, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if !present || len(names) == 0 {
		writeError(w, apierr.Validation(`you must specify either an "index" or "indexes"`))
		return
	}
	idxs, err := s.indexes.ResolveNames(names)
	if err != nil {
		writeError(w, err)
		return
	}

	content, _ := body.Fields["content"].(string)
	identifier, _ := body.Fields["identifier"].(string)

	docID, err := s.createOrUpdateByIdentifier(content, identifier)
	if err != nil {
		writeError(w, err)
		return
	}

	if metaMap, ok := metadataField(body.Fields); ok && len(metaMap) > 0 {
		if err := s.docs.SetMetadata(docID, metaMap); err != nil {
			writeError(w, err)
			return
		}
	}

	for _, idx := range idxs {
		if err := s.docs.AddToIndex(docID, idx.ID); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := s.attachUploadedFiles(docID, body); err != nil {
		writeError(w, err)
		return
	}

	s.writeDocumentDetail(w, docID)
}

// createOrUpdateByIdentifier implements I2: creating with an
// identifier that already belongs to a document updates that document
// in place instead of inserting a new row.
func (s *Server) createOrUpdateByIdentifier(content, identifier string) (int64, error) {
	if identifier != "" {
		existing, err := s.docs.GetDocumentByIdentifier(identifier)
		if err == nil {
			if err := s.docs.UpdateDocument(existing.ID, &content, nil); err != nil {
				return 0, err
			}
			return existing.ID, nil
		}
		if apiErr, ok := apierr.As(err); !ok || apiErr.Kind != apierr.KindNotFound {
			return 0, err
		}
	}
	return s.docs.CreateDocument(content, identifier)
}

func metadataField(fields map[string]any) (map[string]string, bool) {
	v, ok := fields["metadata"]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, true
	}
	return validator.CoerceMetadataMap(m), true
}

func (s *Server) writeDocumentDetail(w http.ResponseWriter, docID int64) {
	doc, err := s.docs.GetDocument(docID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.linker.document(doc))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.linker.document(doc))
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
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

	if err := validator.RequireKeys(body.Fields, nil,
		[]string{"content", "identifier", "index", "indexes", "metadata"}); err != nil {
		writeError(w, err)
		return
	}

	content := nonEmptyStringField(body.Fields, "content")
	identifier := nonEmptyStringField(body.Fields, "identifier")
	if content != nil || identifier != nil {
		if err := s.docs.UpdateDocument(doc.ID, content, identifier); err != nil {
			writeError(w, err)
			return
		}
	}

	if _, present := body.Fields["metadata"]; present {
		meta, _ := metadataField(body.Fields)
		if err := s.docs.SetMetadata(doc.ID, meta); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := s.attachUploadedFiles(doc.ID, body); err != nil {
		writeError(w, err)
		return
	}

	names, present, err := validator.ResolveIndexMembership(body.Fields, s.indexes, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if present {
		idxs, err := s.indexes.ResolveNames(names)
		if err != nil {
			writeError(w, err)
			return
		}
		ids := make([]int64, len(idxs))
		for i, idx := range idxs {
			ids[i] = idx.ID
		}
		if err := s.docs.ReplaceIndexes(doc.ID, ids); err != nil {
			writeError(w, err)
			return
		}
	}

	s.writeDocumentDetail(w, doc.ID)
}

func nonEmptyStringField(fields map[string]any, key string) *string {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.LookupDocument(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.docs.DeleteDocument(doc.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
