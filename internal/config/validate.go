package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPort indicates a listen port outside the valid range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidPaginateBy indicates a page size outside 1..1000.
	ErrInvalidPaginateBy = errors.New("invalid paginate_by")

	// ErrEmptyPageVar indicates a blank page query-string key.
	ErrEmptyPageVar = errors.New("empty page_var")

	// ErrInvalidStem indicates an unsupported FTS tokenizer.
	ErrInvalidStem = errors.New("invalid stem")

	// ErrInvalidSearchExtension indicates an unsupported FTS engine.
	ErrInvalidSearchExtension = errors.New("invalid search_extension")

	// ErrInvalidJournalMode indicates an unsupported SQLite journal mode.
	ErrInvalidJournalMode = errors.New("invalid journal_mode")

	// ErrInvalidSynchronous indicates an out-of-range synchronous pragma.
	ErrInvalidSynchronous = errors.New("invalid synchronous")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: must be 1..65535, got %d", ErrInvalidPort, cfg.Port))
	}

	if cfg.PaginateBy < 1 || cfg.PaginateBy > 1000 {
		errs = append(errs, fmt.Errorf("%w: must be 1..1000, got %d", ErrInvalidPaginateBy, cfg.PaginateBy))
	}

	if strings.TrimSpace(cfg.PageVar) == "" {
		errs = append(errs, fmt.Errorf("%w: page_var is required", ErrEmptyPageVar))
	}

	stem := strings.ToLower(cfg.Stem)
	if stem != "simple" && stem != "porter" {
		errs = append(errs, fmt.Errorf("%w: must be 'simple' or 'porter', got '%s'", ErrInvalidStem, cfg.Stem))
	}

	ext := strings.ToUpper(cfg.SearchExtension)
	if ext != "" && ext != "FTS3" && ext != "FTS4" && ext != "FTS5" {
		errs = append(errs, fmt.Errorf("%w: must be '', 'FTS3', 'FTS4' or 'FTS5', got '%s'", ErrInvalidSearchExtension, cfg.SearchExtension))
	}

	if err := validatePragmas(&cfg.Pragmas); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePragmas(cfg *PragmaConfig) error {
	var errs []error

	mode := strings.ToUpper(cfg.JournalMode)
	validModes := map[string]bool{"WAL": true, "DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "OFF": true}
	if !validModes[mode] {
		errs = append(errs, fmt.Errorf("%w: got '%s'", ErrInvalidJournalMode, cfg.JournalMode))
	}

	if cfg.Synchronous < 0 || cfg.Synchronous > 3 {
		errs = append(errs, fmt.Errorf("%w: must be 0..3, got %d", ErrInvalidSynchronous, cfg.Synchronous))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
