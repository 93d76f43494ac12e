package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coleifer/scout/internal/blobstore"
	"github.com/coleifer/scout/internal/storage"
)

func newTestRepo(t *testing.T) (*DocumentRepository, *IndexRepository) {
	t.Helper()
	db := storage.NewTestDB(t)
	blobs, err := blobstore.New(db)
	require.NoError(t, err)
	return New(db, blobs), NewIndexRepository(db)
}

func TestCreateAndGetDocument(t *testing.T) {
	docs, _ := newTestRepo(t)

	id, err := docs.CreateDocument("doc 1", "")
	require.NoError(t, err)

	doc, err := docs.GetDocument(id)
	require.NoError(t, err)
	assert.Equal(t, "doc 1", doc.Content)
	assert.Empty(t, doc.Metadata)
	assert.Empty(t, doc.Indexes)
}

func TestSetMetadata_ReplacesFullSet(t *testing.T) {
	docs, _ := newTestRepo(t)
	id, err := docs.CreateDocument("content", "")
	require.NoError(t, err)

	require.NoError(t, docs.SetMetadata(id, map[string]string{"k1": "v1", "k2": "v2"}))
	meta, err := docs.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k1": "v1", "k2": "v2"}, meta)

	// P2: replacing with a smaller set clears the dropped keys.
	require.NoError(t, docs.SetMetadata(id, map[string]string{"k3": "v3"}))
	meta, err = docs.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k3": "v3"}, meta)

	// An empty map clears metadata entirely.
	require.NoError(t, docs.SetMetadata(id, map[string]string{}))
	meta, err = docs.GetMetadata(id)
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func TestAddToIndex_IdempotentNoOp(t *testing.T) {
	docs, indexes := newTestRepo(t)
	idx, err := indexes.Create("idx-a")
	require.NoError(t, err)
	docID, err := docs.CreateDocument("content", "")
	require.NoError(t, err)

	require.NoError(t, docs.AddToIndex(docID, idx.ID))
	require.NoError(t, docs.AddToIndex(docID, idx.ID))

	doc, err := docs.GetDocument(docID)
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-a"}, doc.Indexes)
}

func TestDeleteDocument_RemovesOnlyItsRows(t *testing.T) {
	docs, indexes := newTestRepo(t)
	idx, err := indexes.Create("idx-a")
	require.NoError(t, err)

	keep, err := docs.CreateDocument("keep me", "")
	require.NoError(t, err)
	require.NoError(t, docs.AddToIndex(keep, idx.ID))
	require.NoError(t, docs.SetMetadata(keep, map[string]string{"k": "v"}))

	gone, err := docs.CreateDocument("delete me", "")
	require.NoError(t, err)
	require.NoError(t, docs.AddToIndex(gone, idx.ID))
	require.NoError(t, docs.SetMetadata(gone, map[string]string{"k": "v"}))
	_, err = docs.Attach(gone, "f.txt", []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, docs.DeleteDocument(gone))

	_, err = docs.GetDocument(gone)
	assert.Error(t, err)

	keptDoc, err := docs.GetDocument(keep)
	require.NoError(t, err)
	assert.Equal(t, []string{"idx-a"}, keptDoc.Indexes)
	assert.Equal(t, map[string]string{"k": "v"}, keptDoc.Metadata)
}

func TestAttach_DedupesBlobAcrossAttachments(t *testing.T) {
	docs, _ := newTestRepo(t)
	doc1, err := docs.CreateDocument("d1", "")
	require.NoError(t, err)
	doc2, err := docs.CreateDocument("d2", "")
	require.NoError(t, err)

	a1, err := docs.Attach(doc1, "test1.txt", []byte("testfile1"))
	require.NoError(t, err)
	a2, err := docs.Attach(doc2, "test1.txt", []byte("testfile1"))
	require.NoError(t, err)
	assert.Equal(t, a1.Hash, a2.Hash)
	assert.EqualValues(t, 9, a1.DataLength)
}

func TestAttach_ReattachSameFilenameUpdatesInPlace(t *testing.T) {
	docs, _ := newTestRepo(t)
	doc, err := docs.CreateDocument("d", "")
	require.NoError(t, err)

	_, err = docs.Attach(doc, "report.csv", []byte("v1"))
	require.NoError(t, err)
	_, err = docs.Attach(doc, "report.csv", []byte("v2, longer now"))
	require.NoError(t, err)

	list, err := docs.ListAttachments(doc)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, raw, err := docs.AttachmentPayload(doc, "report.csv")
	require.NoError(t, err)
	assert.Equal(t, "v2, longer now", string(raw))
}

func TestSanitizeFilename_StripsPathAndUnsafeChars(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_file.txt", SanitizeFilename("my file.txt"))
	assert.Equal(t, "report.csv", SanitizeFilename("report.csv"))
}

func TestGuessMimetype_DefaultsToTextPlain(t *testing.T) {
	assert.Equal(t, "text/plain", GuessMimetype("noextension"))
	assert.Equal(t, "image/jpeg", GuessMimetype("photo.jpg"))
}

func TestLookupDocument_NumericFirstThenIdentifier(t *testing.T) {
	docs, _ := newTestRepo(t)
	id, err := docs.CreateDocument("content", "my-doc")
	require.NoError(t, err)

	byID, err := docs.LookupDocument("1")
	require.NoError(t, err)
	assert.Equal(t, id, byID.ID)

	byIdentifier, err := docs.LookupDocument("my-doc")
	require.NoError(t, err)
	assert.Equal(t, id, byIdentifier.ID)
}
