package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/search"
	"github.com/coleifer/scout/internal/validator"
)

// pageFromQuery reads the configured page variable, defaulting to 1
// and tolerating non-numeric input the same way (the paginator clamps
// anything out of range, so strict rejection here would add nothing).
func (s *Server) pageFromQuery(q url.Values) int {
	v := q.Get(s.cfg.PageVar)
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func splitOrdering(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// searchRequest builds a search.Request from a URL query string. When
// allowBlank is true, a blank q is substituted with "*" and the
// wildcard is force-permitted for this request regardless of the
// star_all config — the index-detail, document-list, and
// cross-document attachment search endpoints all allow a blank q to
// mean "everything in scope", while a literal q=* still honors
// star_all.
func (s *Server) searchRequest(q url.Values, indexIDs []int64, allowBlank bool) (search.Request, error) {
	phrase := strings.TrimSpace(q.Get("q"))
	forceStarAll := false
	if phrase == "" {
		if !allowBlank {
			return search.Request{}, apierr.InvalidSearch("search phrase is required")
		}
		phrase = "*"
		forceStarAll = true
	}

	filters := validator.BuildSearchFilters(validator.ExtractFilters(q))

	return search.Request{
		Phrase:       phrase,
		IndexIDs:     indexIDs,
		Ranking:      search.Ranking(strings.TrimSpace(q.Get("ranking"))),
		Ordering:     splitOrdering(q.Get("ordering")),
		Filters:      filters,
		StarAll:      s.cfg.StarAll || forceStarAll,
		SupportsBM25: s.supportsBM25,
	}, nil
}

func searchTermPtr(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func rankingPtr(r search.Ranking) *string {
	if r == "" {
		r = search.RankingBM25
	}
	v := string(r)
	return &v
}

// documentEnvelope assembles the search envelope shared by the index
// detail, document list, and document search endpoints.
func (s *Server) documentEnvelope(q url.Values, req search.Request, result *search.Result) searchEnvelope {
	env := searchEnvelope{
		DocumentCount: result.DocumentCount,
		FilteredCount: result.FilteredCount,
		Documents:     s.linker.documents(result.Documents),
		Page:          result.Page,
		Pages:         result.Pages,
		Filters:       validator.ExtractFilters(q),
		Ordering:      req.Ordering,
	}
	if term := searchTermPtr(q.Get("q")); term != nil {
		env.SearchTerm = term
		env.Ranking = rankingPtr(req.Ranking)
	}
	return env
}

// attachmentEnvelope is documentEnvelope's counterpart for the
// cross-document attachment search endpoint.
func (s *Server) attachmentEnvelope(q url.Values, req search.Request, result *search.AttachmentResult) attachmentSearchEnvelope {
	env := attachmentSearchEnvelope{
		AttachmentCount: result.AttachmentCount,
		FilteredCount:   result.FilteredCount,
		Attachments:     s.linker.attachmentHits(result.Attachments),
		Page:            result.Page,
		Pages:           result.Pages,
		Filters:         validator.ExtractFilters(q),
		Ordering:        req.Ordering,
	}
	if term := searchTermPtr(q.Get("q")); term != nil {
		env.SearchTerm = term
		env.Ranking = rankingPtr(req.Ranking)
	}
	return env
}
