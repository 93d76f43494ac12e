package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultConfigPasses(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_BlankSearchExtensionPasses(t *testing.T) {
	cfg := Default()
	cfg.SearchExtension = ""
	assert.NoError(t, Validate(cfg))
}

func TestValidate_PortOutOfRangeFails(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPort)

	cfg.Port = 70000
	assert.ErrorIs(t, Validate(cfg), ErrInvalidPort)
}

func TestValidate_PaginateByOutOfRangeFails(t *testing.T) {
	cfg := Default()
	cfg.PaginateBy = 0
	assert.ErrorIs(t, Validate(cfg), ErrInvalidPaginateBy)

	cfg.PaginateBy = 5000
	assert.ErrorIs(t, Validate(cfg), ErrInvalidPaginateBy)
}

func TestValidate_EmptyPageVarFails(t *testing.T) {
	cfg := Default()
	cfg.PageVar = "  "
	assert.ErrorIs(t, Validate(cfg), ErrEmptyPageVar)
}

func TestValidate_InvalidStemFails(t *testing.T) {
	cfg := Default()
	cfg.Stem = "snowball"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidStem)
}

func TestValidate_InvalidSearchExtensionFails(t *testing.T) {
	cfg := Default()
	cfg.SearchExtension = "FTS9"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidSearchExtension)
}

func TestValidate_ValidSearchExtensionTiersPass(t *testing.T) {
	cfg := Default()
	for _, ext := range []string{"FTS3", "FTS4", "FTS5", "fts5"} {
		cfg.SearchExtension = ext
		assert.NoError(t, Validate(cfg), "extension %q should be valid", ext)
	}
}

func TestValidate_InvalidJournalModeFails(t *testing.T) {
	cfg := Default()
	cfg.Pragmas.JournalMode = "BOGUS"
	assert.ErrorIs(t, Validate(cfg), ErrInvalidJournalMode)
}

func TestValidate_SynchronousOutOfRangeFails(t *testing.T) {
	cfg := Default()
	cfg.Pragmas.Synchronous = -1
	assert.ErrorIs(t, Validate(cfg), ErrInvalidSynchronous)

	cfg.Pragmas.Synchronous = 4
	assert.ErrorIs(t, Validate(cfg), ErrInvalidSynchronous)
}

func TestValidate_MultipleErrorsAreJoined(t *testing.T) {
	cfg := Default()
	cfg.Port = -1
	cfg.Stem = "bogus"
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrInvalidPort.Error())
	assert.Contains(t, err.Error(), ErrInvalidStem.Error())
}
