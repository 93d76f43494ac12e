package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// RankMode selects how main_document matches are scored.
type RankMode int

const (
	// RankBM25 uses the FTS5/FTS4 bm25() auxiliary function.
	RankBM25 RankMode = iota
	// RankSimple uses the coarser rank() function (FTS3 fallback).
	RankSimple
	// RankNone suppresses the score projection entirely.
	RankNone
)

// contentWeight and identifierWeight give the content column full
// weight and zero out the identifier column, so identifier-only
// matches never pollute ranked results.
const (
	contentWeight    = 1.0
	identifierWeight = 0.0
)

// RankExpression returns the SQL fragment that projects a document's
// score, or "" when mode is RankNone. bm25(main_document, 1.0, 0.0)
// restricts relevance to the content column; rank() takes the same
// column-weight argument order on engines that expose it.
func RankExpression(mode RankMode, supportsBM25 bool) string {
	switch mode {
	case RankNone:
		return ""
	case RankSimple:
		return fmt.Sprintf("rank(main_document, %.1f, %.1f)", contentWeight, identifierWeight)
	default:
		if !supportsBM25 {
			return fmt.Sprintf("rank(main_document, %.1f, %.1f)", contentWeight, identifierWeight)
		}
		return fmt.Sprintf("bm25(main_document, %.1f, %.1f)", contentWeight, identifierWeight)
	}
}

// EscapeMatchQuery escapes double quotes in a phrase so it can be
// embedded as an FTS MATCH argument without breaking out of its
// quoting. The "*" wildcard sentinel must never reach this function —
// callers branch around MATCH entirely for that case.
func EscapeMatchQuery(phrase string) string {
	return strings.ReplaceAll(phrase, `"`, `""`)
}

// DocumentStats holds the main_document row count and the size of the
// whole database file (page_count * page_size).
type DocumentStats struct {
	TotalDocuments int
	IndexSizeBytes int64
}

// GetDocumentStats retrieves the document count and database size.
func GetDocumentStats(db *sql.DB) (*DocumentStats, error) {
	var stats DocumentStats

	if err := db.QueryRow("SELECT COUNT(*) FROM main_document").Scan(&stats.TotalDocuments); err != nil {
		return nil, fmt.Errorf("failed to query document count: %w", err)
	}

	var pageCount, pageSize int64
	_ = db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	stats.IndexSizeBytes = pageCount * pageSize

	return &stats, nil
}
