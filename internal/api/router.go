package api

import (
	"net/http"
	"strings"
)

// routes builds Scout's full URL/verb table over Go's pattern-matching
// ServeMux. Literal segments (documents, attachments, download) take
// precedence over the wildcard {name}/{id}/{filename} patterns at the
// same position, so /documents/ never gets shadowed by the index
// detail route.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(s.route("GET", ""), s.handleListIndexes)
	mux.HandleFunc(s.route("POST", ""), s.handleCreateIndex)

	mux.HandleFunc(s.route("GET", "documents/"), s.handleSearchDocuments)
	mux.HandleFunc(s.route("POST", "documents/"), s.handleCreateDocument)

	mux.HandleFunc(s.route("GET", "documents/attachments/"), s.handleSearchAttachments)

	mux.HandleFunc(s.route("GET", "documents/{id}/"), s.handleGetDocument)
	mux.HandleFunc(s.route("POST", "documents/{id}/"), s.handleUpdateDocument)
	mux.HandleFunc(s.route("PUT", "documents/{id}/"), s.handleUpdateDocument)
	mux.HandleFunc(s.route("DELETE", "documents/{id}/"), s.handleDeleteDocument)

	mux.HandleFunc(s.route("GET", "documents/{id}/attachments/"), s.handleListAttachments)
	mux.HandleFunc(s.route("POST", "documents/{id}/attachments/"), s.handleAttachFiles)

	mux.HandleFunc(s.route("GET", "documents/{id}/attachments/{filename}/"), s.handleGetAttachment)
	mux.HandleFunc(s.route("POST", "documents/{id}/attachments/{filename}/"), s.handleReplaceAttachment)
	mux.HandleFunc(s.route("PUT", "documents/{id}/attachments/{filename}/"), s.handleReplaceAttachment)
	mux.HandleFunc(s.route("DELETE", "documents/{id}/attachments/{filename}/"), s.handleDeleteAttachment)

	mux.HandleFunc(s.route("GET", "documents/{id}/attachments/{filename}/download/"), s.handleDownloadAttachment)

	mux.HandleFunc(s.route("GET", "{name}/"), s.handleGetIndex)
	mux.HandleFunc(s.route("POST", "{name}/"), s.handleRenameIndex)
	mux.HandleFunc(s.route("PUT", "{name}/"), s.handleRenameIndex)
	mux.HandleFunc(s.route("DELETE", "{name}/"), s.handleDeleteIndex)

	return mux
}

// route prepends the configured URL prefix to suffix (which never
// carries a leading slash) and joins it with method into the pattern
// syntax Go's enhanced ServeMux expects.
func (s *Server) route(method, suffix string) string {
	prefix := strings.Trim(s.cfg.URLPrefix, "/")
	path := "/"
	if prefix != "" {
		path += prefix + "/"
	}
	path += suffix
	return method + " " + path
}
