// Package search implements Scout's single search entry point: it
// compiles a phrase, index scope, metadata filters, ordering, and
// ranking choice into SQL against main_document, then paginates the
// result.
package search

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/model"
	"github.com/coleifer/scout/internal/storage"
)

// Ranking selects how matches score.
type Ranking string

const (
	RankingBM25   Ranking = "bm25"
	RankingSimple Ranking = "simple"
	RankingNone   Ranking = "none"
)

// ValidRankings lists the only accepted ranking values.
var ValidRankings = map[Ranking]bool{RankingBM25: true, RankingSimple: true, RankingNone: true}

// FilterOp is a recognized metadata comparison operator.
type FilterOp string

const (
	OpEq         FilterOp = "eq"
	OpNe         FilterOp = "ne"
	OpGe         FilterOp = "ge"
	OpGt         FilterOp = "gt"
	OpLe         FilterOp = "le"
	OpLt         FilterOp = "lt"
	OpIn         FilterOp = "in"
	OpContains   FilterOp = "contains"
	OpStartswith FilterOp = "startswith"
	OpEndswith   FilterOp = "endswith"
	OpRegex      FilterOp = "regex"
)

var validOps = map[FilterOp]bool{
	OpEq: true, OpNe: true, OpGe: true, OpGt: true, OpLe: true, OpLt: true,
	OpIn: true, OpContains: true, OpStartswith: true, OpEndswith: true, OpRegex: true,
}

// ValidOps returns the recognized operators in a fixed order, used in
// the 400 error body when an unknown op is requested.
func ValidOps() []string {
	return []string{"eq", "ne", "ge", "gt", "le", "lt", "in", "contains", "startswith", "endswith", "regex"}
}

// Filter is one metadata_key[__op] => values predicate. Multiple
// Values are OR'd together (same key, any matching value).
type Filter struct {
	Key    string
	Op     FilterOp
	Values []string
}

// Request is the search engine's full input contract.
type Request struct {
	Phrase       string
	IndexIDs     []int64 // empty means global scope
	Ranking      Ranking
	Ordering     []string
	Filters      []Filter
	StarAll      bool // whether "*" is permitted to bypass MATCH
	SupportsBM25 bool
}

// Result is one page of a search.
type Result struct {
	Documents     []*model.Document
	DocumentCount int64
	FilteredCount int64
	Page          int
	Pages         int
}

// Engine executes Requests against the embedded database.
type Engine struct {
	db *sql.DB
}

// New builds an Engine over db.
func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// Search compiles and runs req, returning page `page` of `perPage` rows.
func (e *Engine) Search(req Request, page, perPage int) (*Result, error) {
	phrase := strings.TrimSpace(req.Phrase)
	if phrase == "" {
		return nil, apierr.InvalidSearch("search phrase is required")
	}

	wildcard := phrase == "*"
	if wildcard && !req.StarAll {
		return nil, apierr.InvalidSearch("wildcard search is disabled")
	}

	ranking := req.Ranking
	if ranking == "" {
		ranking = RankingBM25
	}
	if !ValidRankings[ranking] {
		return nil, apierr.Validation("unrecognized ranking %q", ranking)
	}
	if wildcard {
		ranking = RankingNone
	}

	for _, f := range req.Filters {
		if !validOps[f.Op] {
			return nil, apierr.Validation("unknown filter op %q; valid ops are: %s", f.Op, strings.Join(ValidOps(), ", "))
		}
	}

	documentCount, err := e.scopeCount(req.IndexIDs)
	if err != nil {
		return nil, err
	}

	conds, err := buildConditions(req, phrase, wildcard)
	if err != nil {
		return nil, err
	}

	docsBuilder := sq.Select().From("main_document d")
	if len(req.IndexIDs) > 0 {
		docsBuilder = docsBuilder.Join("main_index_document mid ON mid.document_id = d.rowid")
	}
	for _, c := range conds {
		docsBuilder = docsBuilder.Where(c)
	}

	countQuery, countArgs, err := docsBuilder.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to compile search count query: %w", err))
	}
	var filteredCount int64
	if err := e.db.QueryRow(countQuery, countArgs...).Scan(&filteredCount); err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to count search results: %w", err))
	}

	orderSQL := buildOrdering(req.Ordering, ranking, "d.rowid ASC")

	rankMode := storage.RankNone
	switch ranking {
	case RankingBM25:
		rankMode = storage.RankBM25
	case RankingSimple:
		rankMode = storage.RankSimple
	}
	rankExpr := storage.RankExpression(rankMode, req.SupportsBM25)

	selectCols := []string{"d.rowid", "d.content", "d.identifier"}
	if rankExpr != "" {
		selectCols = append(selectCols, rankExpr+" AS score")
	}

	offset := uint64((page - 1) * perPage)
	query, args, err := docsBuilder.Columns(selectCols...).
		OrderBy(orderSQL).
		Limit(uint64(perPage)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to compile search query: %w", err))
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to execute search: %w", err))
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		doc := &model.Document{}
		if rankExpr != "" {
			var score float64
			if err := rows.Scan(&doc.ID, &doc.Content, &doc.Identifier, &score); err != nil {
				return nil, apierr.Engine(fmt.Errorf("failed to scan search row: %w", err))
			}
			doc.Score = &score
		} else {
			if err := rows.Scan(&doc.ID, &doc.Content, &doc.Identifier); err != nil {
				return nil, apierr.Engine(fmt.Errorf("failed to scan search row: %w", err))
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to iterate search results: %w", err))
	}

	pages := int(filteredCount) / perPage
	if int(filteredCount)%perPage != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}

	return &Result{
		Documents:     docs,
		DocumentCount: documentCount,
		FilteredCount: filteredCount,
		Page:          page,
		Pages:         pages,
	}, nil
}

func (e *Engine) scopeCount(indexIDs []int64) (int64, error) {
	var builder sq.SelectBuilder
	if len(indexIDs) == 0 {
		builder = sq.Select("COUNT(*)").From("main_document")
	} else {
		builder = sq.Select("COUNT(DISTINCT mid.document_id)").
			From("main_index_document mid").
			Where(sq.Eq{"mid.index_id": indexIDs})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to compile scope count: %w", err))
	}
	var count int64
	if err := e.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to count scope: %w", err))
	}
	return count, nil
}

// buildConditions assembles the WHERE-clause predicates: the MATCH
// predicate (skipped for the "*" wildcard sentinel, which the FTS
// engine itself rejects), the index scope restriction, and the
// metadata EXISTS subqueries. Each returned sq.Sqlizer is AND'd
// together by the caller's SelectBuilder.
func buildConditions(req Request, phrase string, wildcard bool) ([]sq.Sqlizer, error) {
	var conds []sq.Sqlizer

	if !wildcard {
		conds = append(conds, sq.Expr("d.content MATCH ?", storage.EscapeMatchQuery(phrase)))
	}

	if len(req.IndexIDs) > 0 {
		conds = append(conds, sq.Eq{"mid.index_id": req.IndexIDs})
	}

	for _, f := range req.Filters {
		clause, err := buildFilterClause(f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, clause)
	}

	return conds, nil
}

// buildFilterClause compiles one metadata filter into an EXISTS
// sub-query built with squirrel. A filter with multiple values ORs
// the op across values for the same key.
func buildFilterClause(f Filter) (sq.Sqlizer, error) {
	var predicates sq.Or
	for _, v := range f.Values {
		pred, err := opPredicate(f.Op, v)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, pred)
	}

	inner := sq.Select("1").
		From("main_metadata m").
		Where(sq.Expr("m.document_id = d.rowid")).
		Where(sq.Eq{"m.key": f.Key}).
		Where(predicates)

	innerSQL, innerArgs, err := inner.ToSql()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to compile metadata filter: %w", err))
	}
	return sq.Expr("EXISTS ("+innerSQL+")", innerArgs...), nil
}

func opPredicate(op FilterOp, value string) (sq.Sqlizer, error) {
	switch op {
	case OpEq:
		return sq.Eq{"m.value": value}, nil
	case OpNe:
		return sq.NotEq{"m.value": value}, nil
	case OpGe:
		return sq.GtOrEq{"m.value": value}, nil
	case OpGt:
		return sq.Gt{"m.value": value}, nil
	case OpLe:
		return sq.LtOrEq{"m.value": value}, nil
	case OpLt:
		return sq.Lt{"m.value": value}, nil
	case OpIn:
		parts := strings.Split(value, ",")
		values := make([]string, len(parts))
		for i, p := range parts {
			values[i] = strings.TrimSpace(p)
		}
		return sq.Eq{"m.value": values}, nil
	case OpContains:
		return sq.Expr("m.value LIKE ? ESCAPE '\\'", "%"+escapeLike(value)+"%"), nil
	case OpStartswith:
		return sq.Expr("m.value LIKE ? ESCAPE '\\'", escapeLike(value)+"%"), nil
	case OpEndswith:
		return sq.Expr("m.value LIKE ? ESCAPE '\\'", "%"+escapeLike(value)), nil
	case OpRegex:
		return sq.Expr("m.value REGEXP ?", value), nil
	default:
		return nil, apierr.Validation("unknown filter op %q; valid ops are: %s", op, strings.Join(ValidOps(), ", "))
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// orderColumns maps recognized sort keys to SQL expressions. "score"
// is only valid when ranking is not RankingNone.
var orderColumns = map[string]string{
	"id":         "d.rowid",
	"identifier": "d.identifier",
	"content":    "d.content",
}

// buildOrdering translates the ordering list into an ORDER BY clause.
// Unknown keys are silently dropped; if nothing recognized survives,
// default to score (ranked) else fallback.
func buildOrdering(ordering []string, ranking Ranking, fallback string) string {
	var terms []string
	for _, key := range ordering {
		desc := false
		k := key
		if strings.HasPrefix(k, "-") {
			desc = true
			k = k[1:]
		}

		var col string
		if k == "score" {
			if ranking == RankingNone {
				continue
			}
			col = "score"
		} else if c, ok := orderColumns[k]; ok {
			col = c
		} else {
			continue
		}

		if desc {
			terms = append(terms, col+" DESC")
		} else {
			terms = append(terms, col+" ASC")
		}
	}

	if len(terms) == 0 {
		if ranking != RankingNone {
			return "score ASC"
		}
		return fallback
	}
	return strings.Join(terms, ", ")
}

// AttachmentResult is one page of a cross-document attachment search.
type AttachmentResult struct {
	Attachments     []*model.AttachmentHit
	AttachmentCount int64
	FilteredCount   int64
	Page            int
	Pages           int
}

// SearchAttachments runs req against the attachment/document join,
// reusing the same MATCH/scope/filter/ordering compilation as Search.
func (e *Engine) SearchAttachments(req Request, page, perPage int) (*AttachmentResult, error) {
	phrase := strings.TrimSpace(req.Phrase)
	if phrase == "" {
		return nil, apierr.InvalidSearch("search phrase is required")
	}

	wildcard := phrase == "*"
	if wildcard && !req.StarAll {
		return nil, apierr.InvalidSearch("wildcard search is disabled")
	}

	ranking := req.Ranking
	if ranking == "" {
		ranking = RankingBM25
	}
	if !ValidRankings[ranking] {
		return nil, apierr.Validation("unrecognized ranking %q", ranking)
	}
	if wildcard {
		ranking = RankingNone
	}

	for _, f := range req.Filters {
		if !validOps[f.Op] {
			return nil, apierr.Validation("unknown filter op %q; valid ops are: %s", f.Op, strings.Join(ValidOps(), ", "))
		}
	}

	attachmentCount, err := e.scopeAttachmentCount(req.IndexIDs)
	if err != nil {
		return nil, err
	}

	conds, err := buildConditions(req, phrase, wildcard)
	if err != nil {
		return nil, err
	}

	attachBuilder := sq.Select().
		From("attachment a").
		Join("main_document d ON d.rowid = a.document_id").
		Join("blobdata bd ON bd.hash = a.hash")
	if len(req.IndexIDs) > 0 {
		attachBuilder = attachBuilder.Join("main_index_document mid ON mid.document_id = d.rowid")
	}
	for _, c := range conds {
		attachBuilder = attachBuilder.Where(c)
	}

	countQuery, countArgs, err := attachBuilder.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to compile attachment count query: %w", err))
	}
	var filteredCount int64
	if err := e.db.QueryRow(countQuery, countArgs...).Scan(&filteredCount); err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to count attachment search results: %w", err))
	}

	orderSQL := buildOrdering(req.Ordering, ranking, "a.filename ASC")

	rankMode := storage.RankNone
	switch ranking {
	case RankingBM25:
		rankMode = storage.RankBM25
	case RankingSimple:
		rankMode = storage.RankSimple
	}
	rankExpr := storage.RankExpression(rankMode, req.SupportsBM25)

	selectCols := []string{"a.document_id", "a.filename", "a.mimetype", "a.timestamp", "bd.length"}
	if rankExpr != "" {
		selectCols = append(selectCols, rankExpr+" AS score")
	}

	offset := uint64((page - 1) * perPage)
	query, args, err := attachBuilder.Columns(selectCols...).
		OrderBy(orderSQL).
		Limit(uint64(perPage)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to compile attachment search query: %w", err))
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to execute attachment search: %w", err))
	}
	defer rows.Close()

	var hits []*model.AttachmentHit
	for rows.Next() {
		hit := &model.AttachmentHit{}
		var ts string
		if rankExpr != "" {
			var score float64
			if err := rows.Scan(&hit.DocumentID, &hit.Filename, &hit.Mimetype, &ts, &hit.DataLength, &score); err != nil {
				return nil, apierr.Engine(fmt.Errorf("failed to scan attachment search row: %w", err))
			}
			hit.Score = &score
		} else {
			if err := rows.Scan(&hit.DocumentID, &hit.Filename, &hit.Mimetype, &ts, &hit.DataLength); err != nil {
				return nil, apierr.Engine(fmt.Errorf("failed to scan attachment search row: %w", err))
			}
		}
		hit.Timestamp, _ = time.Parse(time.RFC3339, ts)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Engine(fmt.Errorf("failed to iterate attachment search results: %w", err))
	}

	pages := int(filteredCount) / perPage
	if int(filteredCount)%perPage != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}

	return &AttachmentResult{
		Attachments:     hits,
		AttachmentCount: attachmentCount,
		FilteredCount:   filteredCount,
		Page:            page,
		Pages:           pages,
	}, nil
}

func (e *Engine) scopeAttachmentCount(indexIDs []int64) (int64, error) {
	var builder sq.SelectBuilder
	if len(indexIDs) == 0 {
		builder = sq.Select("COUNT(*)").From("attachment")
	} else {
		builder = sq.Select("COUNT(DISTINCT a.id)").
			From("attachment a").
			Join("main_index_document mid ON mid.document_id = a.document_id").
			Where(sq.Eq{"mid.index_id": indexIDs})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to compile attachment scope count: %w", err))
	}
	var count int64
	if err := e.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, apierr.Engine(fmt.Errorf("failed to count attachment scope: %w", err))
	}
	return count, nil
}
