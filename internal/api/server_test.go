package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coleifer/scout/internal/config"
	"github.com/coleifer/scout/internal/storage"
)

// newTestServer builds a Server over a fresh in-memory database and
// wraps its routes the same way New's http.Server does, without
// actually binding a listener.
func newTestServer(t *testing.T, authKey string) (*Server, http.Handler) {
	t.Helper()
	db := storage.NewTestDB(t)
	cfg := config.Default()
	cfg.Authentication = authKey

	srv, err := New(cfg, db)
	require.NoError(t, err)

	handler := withLogging(withAuth(cfg.Authentication, srv.routes()))
	return srv, handler
}

func doRequest(handler http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuth_MissingKeyRejected(t *testing.T) {
	_, handler := newTestServer(t, "secret")

	rec := doRequest(handler, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Invalid API key", rec.Body.String())
}

func TestAuth_WrongKeyRejected(t *testing.T) {
	_, handler := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_CorrectHeaderKeyAccepted(t *testing.T) {
	_, handler := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_CorrectQueryKeyAccepted(t *testing.T) {
	_, handler := newTestServer(t, "secret")

	rec := doRequest(handler, http.MethodGet, "/?key=secret", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_DisabledWhenNoKeyConfigured(t *testing.T) {
	_, handler := newTestServer(t, "")

	rec := doRequest(handler, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListIndexes_OrdersByNameAscendingByDefault(t *testing.T) {
	srv, handler := newTestServer(t, "")

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		_, err := srv.indexes.Create(name)
		require.NoError(t, err)
	}

	rec := doRequest(handler, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope indexListEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Indexes, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"},
		[]string{envelope.Indexes[0].Name, envelope.Indexes[1].Name, envelope.Indexes[2].Name})
}

func TestGetIndex_MissingIndexReturnsNotFoundMessage(t *testing.T) {
	_, handler := newTestServer(t, "")

	rec := doRequest(handler, http.MethodGet, "/missing-index/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, `index "missing-index" not found`, body["error"])
}

func TestCreateDocument_ReturnsMetadataAndIndexes(t *testing.T) {
	srv, handler := newTestServer(t, "")

	_, err := srv.indexes.Create("docs")
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"content":  "hello world",
		"index":    "docs",
		"metadata": map[string]any{"author": "joe", "year": 2024},
	})
	require.NoError(t, err)

	rec := doRequest(handler, http.MethodPost, "/documents/", payload, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc documentDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "hello world", doc.Content)
	assert.Equal(t, []string{"docs"}, doc.Indexes)
	assert.Equal(t, map[string]string{"author": "joe", "year": "2024"}, doc.Metadata)
}

func TestAttachmentRoundTrip_CreateAttachDownload(t *testing.T) {
	srv, handler := newTestServer(t, "")

	_, err := srv.indexes.Create("docs")
	require.NoError(t, err)

	createPayload, err := json.Marshal(map[string]any{"content": "a document", "index": "docs"})
	require.NoError(t, err)
	createRec := doRequest(handler, http.MethodPost, "/documents/", createPayload, "application/json")
	require.Equal(t, http.StatusOK, createRec.Code)

	var doc documentDTO
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &doc))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("report.txt", "report.txt")
	require.NoError(t, err)
	fileContents := []byte("line one\nline two\n")
	_, err = part.Write(fileContents)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	attachPath := "/documents/" + strconv.FormatInt(doc.ID, 10) + "/attachments/"
	req := httptest.NewRequest(http.MethodPost, attachPath, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created attachmentsCreatedEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Attachments, 1)
	assert.Equal(t, "report.txt", created.Attachments[0].Filename)

	downloadPath := "/documents/" + strconv.FormatInt(doc.ID, 10) + "/attachments/report.txt/download/"
	downloadRec := doRequest(handler, http.MethodGet, downloadPath, nil, "")
	require.Equal(t, http.StatusOK, downloadRec.Code)
	assert.Equal(t, fileContents, downloadRec.Body.Bytes())
	assert.Equal(t, "inline; filename=report.txt", downloadRec.Header().Get("Content-Disposition"))
}
