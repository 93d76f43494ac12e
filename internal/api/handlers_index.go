package api

import (
	"net/http"

	"github.com/coleifer/scout/internal/search"
	"github.com/coleifer/scout/internal/validator"
)

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ordering := q.Get("ordering")
	if ordering == "" {
		ordering = "name"
	}

	indexes, err := s.indexes.List(ordering)
	if err != nil {
		writeError(w, err)
		return
	}

	paginator := search.NewPaginator(s.cfg.PaginateBy)
	page, pages := paginator.Normalize(s.pageFromQuery(q), int64(len(indexes)))
	start, end := pageBounds(paginator, page, len(indexes))

	writeJSON(w, http.StatusOK, indexListEnvelope{
		Indexes:  s.linker.indexes(indexes[start:end]),
		Ordering: splitOrdering(ordering),
		Page:     page,
		Pages:    pages,
	})
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	body, err := validator.ParseBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	if err := validator.RequireKeys(body.Fields, []string{"name"}, nil); err != nil {
		writeError(w, err)
		return
	}
	name, _ := body.Fields["name"].(string)

	if _, err := s.indexes.Create(name); err != nil {
		writeError(w, err)
		return
	}

	s.writeIndexDetail(w, r, name)
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	s.writeIndexDetail(w, r, r.PathValue("name"))
}

func (s *Server) handleRenameIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.indexes.Get(r.PathValue("name"))
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

	if err := validator.RequireKeys(body.Fields, []string{"name"}, nil); err != nil {
		writeError(w, err)
		return
	}
	newName, _ := body.Fields["name"].(string)

	if err := s.indexes.Rename(idx.ID, newName); err != nil {
		writeError(w, err)
		return
	}

	s.writeIndexDetail(w, r, newName)
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.indexes.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.indexes.Delete(idx.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeIndexDetail loads idx by name and merges it with a search
// envelope scoped to its membership, matching an index detail request
// regardless of whether it arrived via GET, create, or rename.
func (s *Server) writeIndexDetail(w http.ResponseWriter, r *http.Request, name string) {
	idx, err := s.indexes.Get(name)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	req, err := s.searchRequest(q, []int64{idx.ID}, true)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.engine.Search(req, s.pageFromQuery(q), s.cfg.PaginateBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, indexDetailEnvelope{
		ID:             idx.ID,
		Name:           idx.Name,
		searchEnvelope: s.documentEnvelope(q, req, result),
	})
}

// pageBounds converts a normalized page number into slice bounds over
// an in-memory result set, clamping to its length.
func pageBounds(p *search.Paginator, page, total int) (start, end int) {
	start = p.Offset(page)
	if start > total {
		start = total
	}
	end = start + p.PerPage
	if end > total {
		end = total
	}
	return start, end
}
