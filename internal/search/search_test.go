package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coleifer/scout/internal/blobstore"
	"github.com/coleifer/scout/internal/repository"
	"github.com/coleifer/scout/internal/storage"
)

func newTestEngine(t *testing.T) (*Engine, *repository.DocumentRepository, *repository.IndexRepository) {
	t.Helper()
	db := storage.NewTestDB(t)
	blobs, err := blobstore.New(db)
	require.NoError(t, err)
	docs := repository.New(db, blobs)
	indexes := repository.NewIndexRepository(db)
	return New(db), docs, indexes
}

func TestSearch_MatchesPhraseAcrossContent(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	_, err := docs.CreateDocument("the quick brown fox", "")
	require.NoError(t, err)
	_, err = docs.CreateDocument("a lazy dog", "")
	require.NoError(t, err)

	res, err := engine.Search(Request{Phrase: "fox"}, 1, 50)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "the quick brown fox", res.Documents[0].Content)
	assert.EqualValues(t, 2, res.DocumentCount)
	assert.EqualValues(t, 1, res.FilteredCount)
}

func TestSearch_EmptyPhraseIsInvalidSearch(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.Search(Request{Phrase: "   "}, 1, 50)
	require.Error(t, err)
}

func TestSearch_WildcardBypassesMatchWhenEnabled(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	_, err := docs.CreateDocument("one", "")
	require.NoError(t, err)
	_, err = docs.CreateDocument("two", "")
	require.NoError(t, err)

	res, err := engine.Search(Request{Phrase: "*", StarAll: true}, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.FilteredCount)
	for _, d := range res.Documents {
		assert.Nil(t, d.Score)
	}
}

func TestSearch_WildcardRejectedWhenDisabled(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	_, err := docs.CreateDocument("one", "")
	require.NoError(t, err)

	_, err = engine.Search(Request{Phrase: "*", StarAll: false}, 1, 50)
	assert.Error(t, err)
}

func TestSearch_ScopedToIndex(t *testing.T) {
	engine, docs, indexes := newTestEngine(t)
	idxA, err := indexes.Create("idx-a")
	require.NoError(t, err)
	_, err = indexes.Create("idx-b")
	require.NoError(t, err)

	inScope, err := docs.CreateDocument("widget report", "")
	require.NoError(t, err)
	require.NoError(t, docs.AddToIndex(inScope, idxA.ID))

	outOfScope, err := docs.CreateDocument("widget summary", "")
	require.NoError(t, err)
	_ = outOfScope

	res, err := engine.Search(Request{Phrase: "widget", IndexIDs: []int64{idxA.ID}}, 1, 50)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.EqualValues(t, 1, res.DocumentCount)
}

func TestSearch_MetadataEqFilter(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	a, err := docs.CreateDocument("widget alpha", "")
	require.NoError(t, err)
	require.NoError(t, docs.SetMetadata(a, map[string]string{"status": "active"}))
	b, err := docs.CreateDocument("widget beta", "")
	require.NoError(t, err)
	require.NoError(t, docs.SetMetadata(b, map[string]string{"status": "archived"}))

	res, err := engine.Search(Request{
		Phrase:  "widget",
		Filters: []Filter{{Key: "status", Op: OpEq, Values: []string{"active"}}},
	}, 1, 50)
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "widget alpha", res.Documents[0].Content)
}

func TestSearch_MetadataInFilterMultiValue(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	a, err := docs.CreateDocument("widget one", "")
	require.NoError(t, err)
	require.NoError(t, docs.SetMetadata(a, map[string]string{"color": "red"}))
	b, err := docs.CreateDocument("widget two", "")
	require.NoError(t, err)
	require.NoError(t, docs.SetMetadata(b, map[string]string{"color": "blue"}))
	c, err := docs.CreateDocument("widget three", "")
	require.NoError(t, err)
	require.NoError(t, docs.SetMetadata(c, map[string]string{"color": "green"}))

	res, err := engine.Search(Request{
		Phrase:  "widget",
		Filters: []Filter{{Key: "color", Op: OpIn, Values: []string{"red,blue"}}},
	}, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.FilteredCount)
}

func TestSearch_UnknownFilterOpIsValidationError(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	_, err := docs.CreateDocument("widget", "")
	require.NoError(t, err)

	_, err = engine.Search(Request{
		Phrase:  "widget",
		Filters: []Filter{{Key: "k", Op: "bogus", Values: []string{"v"}}},
	}, 1, 50)
	assert.Error(t, err)
}

func TestSearch_OrderingDescendingOnUnknownKeyDropped(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	_, err := docs.CreateDocument("widget first", "")
	require.NoError(t, err)
	_, err = docs.CreateDocument("widget second", "")
	require.NoError(t, err)

	res, err := engine.Search(Request{Phrase: "widget", Ranking: RankingNone, Ordering: []string{"bogus", "-id"}}, 1, 50)
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	assert.Equal(t, "widget second", res.Documents[0].Content)
}

func TestSearch_Pagination(t *testing.T) {
	engine, docs, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		_, err := docs.CreateDocument("widget", "")
		require.NoError(t, err)
	}

	res, err := engine.Search(Request{Phrase: "widget", Ranking: RankingNone}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 2)
	assert.Equal(t, 3, res.Pages)

	res, err = engine.Search(Request{Phrase: "widget", Ranking: RankingNone}, 3, 2)
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
}

func TestPaginator_ClampsOutOfRangePage(t *testing.T) {
	p := NewPaginator(10)
	page, pages := p.Normalize(99, 25)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 3, page)

	page, pages = p.Normalize(0, 25)
	assert.Equal(t, 1, page)
	assert.Equal(t, 3, pages)

	page, pages = p.Normalize(1, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, pages)
}

func TestPaginator_ClampsPerPageRange(t *testing.T) {
	p := NewPaginator(0)
	assert.Equal(t, 1, p.PerPage)

	p = NewPaginator(5000)
	assert.Equal(t, 1000, p.PerPage)
}
