package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCreate_DuplicateNameIsConflict(t *testing.T) {
	_, indexes := newTestRepo(t)

	_, err := indexes.Create("idx-a")
	require.NoError(t, err)

	_, err = indexes.Create("idx-a")
	assert.Contains(t, err.Error(), "already exists")
}

func TestIndexRename_ClashIsConflict(t *testing.T) {
	_, indexes := newTestRepo(t)
	_, err := indexes.Create("idx-a")
	require.NoError(t, err)
	b, err := indexes.Create("idx-b")
	require.NoError(t, err)

	err = indexes.Rename(b.ID, "idx-a")
	assert.Contains(t, err.Error(), "already in use")
}

func TestIndexList_OrderedByName(t *testing.T) {
	_, indexes := newTestRepo(t)
	_, err := indexes.Create("i2")
	require.NoError(t, err)
	_, err = indexes.Create("i0")
	require.NoError(t, err)
	_, err = indexes.Create("i1")
	require.NoError(t, err)

	list, err := indexes.List("name")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"i0", "i1", "i2"}, []string{list[0].Name, list[1].Name, list[2].Name})
	for _, idx := range list {
		assert.EqualValues(t, 0, idx.DocumentCount)
	}
}

func TestIndexResolveNames_ReportsMissing(t *testing.T) {
	_, indexes := newTestRepo(t)
	_, err := indexes.Create("idx")
	require.NoError(t, err)

	_, err = indexes.ResolveNames([]string{"missing", "idx", "blah"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing, blah")
}

func TestIndexDelete_LeavesDocumentsIntact(t *testing.T) {
	docs, indexes := newTestRepo(t)
	idx, err := indexes.Create("idx-a")
	require.NoError(t, err)
	docID, err := docs.CreateDocument("content", "")
	require.NoError(t, err)
	require.NoError(t, docs.AddToIndex(docID, idx.ID))

	require.NoError(t, indexes.Delete(idx.ID))

	_, err = indexes.Get("idx-a")
	assert.Error(t, err)

	doc, err := docs.GetDocument(docID)
	require.NoError(t, err)
	assert.Empty(t, doc.Indexes)
}
