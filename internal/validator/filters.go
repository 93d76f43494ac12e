package validator

import (
	"strings"

	"github.com/coleifer/scout/internal/search"
)

// BuildSearchFilters turns the raw metadata_key[__op] -> values map
// (already stripped of reserved keys by ExtractFilters) into compiled
// search.Filter records. An op suffix other than one search recognizes
// is passed through verbatim so the engine can report it in its
// unknown-op error.
func BuildSearchFilters(raw map[string][]string) []search.Filter {
	filters := make([]search.Filter, 0, len(raw))
	for key, values := range raw {
		k, op := splitFilterKey(key)
		filters = append(filters, search.Filter{
			Key:    k,
			Op:     search.FilterOp(op),
			Values: values,
		})
	}
	return filters
}

// splitFilterKey splits "metadata_key__op" into its key and op parts.
// Absence of "__" defaults the op to "eq".
func splitFilterKey(key string) (string, string) {
	if idx := strings.LastIndex(key, "__"); idx != -1 {
		return key[:idx], key[idx+2:]
	}
	return key, "eq"
}
