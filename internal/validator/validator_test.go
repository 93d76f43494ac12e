package validator

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/repository"
	"github.com/coleifer/scout/internal/storage"
)

func TestRequireKeys_AllPresentPasses(t *testing.T) {
	fields := map[string]any{"content": "hi", "identifier": "doc-1"}
	err := RequireKeys(fields, []string{"content"}, []string{"identifier"})
	assert.NoError(t, err)
}

func TestRequireKeys_MissingRequiredReported(t *testing.T) {
	fields := map[string]any{"identifier": "doc-1"}
	err := RequireKeys(fields, []string{"content"}, []string{"identifier"})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "missing required field(s): content")
}

func TestRequireKeys_UnknownFieldReported(t *testing.T) {
	fields := map[string]any{"content": "hi", "bogus": "x"}
	err := RequireKeys(fields, []string{"content"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field(s): bogus")
}

func TestRequireKeys_MissingAndInvalidBothReported(t *testing.T) {
	fields := map[string]any{"bogus": "x"}
	err := RequireKeys(fields, []string{"content"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field(s): content")
	assert.Contains(t, err.Error(), "invalid field(s): bogus")
}

func TestRequireKeys_EmptyStringCountsAsAbsent(t *testing.T) {
	fields := map[string]any{"content": ""}
	err := RequireKeys(fields, []string{"content"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field(s): content")
}

func TestRequireKeys_NullCountsAsAbsent(t *testing.T) {
	fields := map[string]any{"content": nil}
	err := RequireKeys(fields, []string{"content"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field(s): content")
}

func newTestIndexes(t *testing.T) *repository.IndexRepository {
	t.Helper()
	db := storage.NewTestDB(t)
	return repository.NewIndexRepository(db)
}

func TestResolveIndexMembership_SingleNameResolves(t *testing.T) {
	indexes := newTestIndexes(t)
	_, err := indexes.Create("docs")
	require.NoError(t, err)

	names, present, err := ResolveIndexMembership(map[string]any{"index": "docs"}, indexes, true)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []string{"docs"}, names)
}

func TestResolveIndexMembership_ListNameResolves(t *testing.T) {
	indexes := newTestIndexes(t)
	_, err := indexes.Create("a")
	require.NoError(t, err)
	_, err = indexes.Create("b")
	require.NoError(t, err)

	fields := map[string]any{"indexes": []any{"a", "b"}}
	names, present, err := ResolveIndexMembership(fields, indexes, true)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestResolveIndexMembership_UnknownNameIsValidationError(t *testing.T) {
	indexes := newTestIndexes(t)

	_, _, err := ResolveIndexMembership(map[string]any{"index": "ghost"}, indexes, true)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Message, "ghost")
}

func TestResolveIndexMembership_AbsentAndRequiredIsError(t *testing.T) {
	indexes := newTestIndexes(t)

	_, present, err := ResolveIndexMembership(map[string]any{}, indexes, true)
	require.Error(t, err)
	assert.False(t, present)
}

func TestResolveIndexMembership_AbsentAndNotRequiredLeavesUntouched(t *testing.T) {
	indexes := newTestIndexes(t)

	names, present, err := ResolveIndexMembership(map[string]any{}, indexes, false)
	require.NoError(t, err)
	assert.False(t, present)
	assert.Nil(t, names)
}

func TestResolveIndexMembership_EmptyKeyClearsMembership(t *testing.T) {
	indexes := newTestIndexes(t)

	names, present, err := ResolveIndexMembership(map[string]any{"indexes": []any{}}, indexes, false)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Nil(t, names)
}

func TestExtractFilters_DropsReservedKeys(t *testing.T) {
	q := url.Values{
		"q":      {"search term"},
		"page":   {"2"},
		"key":    {"secret"},
		"status": {"active"},
	}
	filters := ExtractFilters(q)
	assert.Equal(t, map[string][]string{"status": {"active"}}, filters)
}

func TestExtractFilters_PreservesMultipleValues(t *testing.T) {
	q := url.Values{"tag": {"a", "b"}}
	filters := ExtractFilters(q)
	assert.Equal(t, []string{"a", "b"}, filters["tag"])
}

func TestCoerceMetadataValue_RendersPrimitives(t *testing.T) {
	assert.Equal(t, "true", CoerceMetadataValue(true))
	assert.Equal(t, "false", CoerceMetadataValue(false))
	assert.Equal(t, "33", CoerceMetadataValue(float64(33)))
	assert.Equal(t, "3.5", CoerceMetadataValue(float64(3.5)))
	assert.Equal(t, "hi", CoerceMetadataValue("hi"))
	assert.Equal(t, "", CoerceMetadataValue(nil))
}
