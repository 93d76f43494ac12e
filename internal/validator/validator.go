// Package validator normalizes raw HTTP input — JSON bodies,
// multipart forms, and query strings — into typed request records,
// enforcing Scout's key whitelists before any repository call runs.
package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/coleifer/scout/internal/apierr"
	"github.com/coleifer/scout/internal/repository"
)

// ReservedKeys are never treated as metadata filter input; they are
// consumed by the search request before the filters map is built.
var ReservedKeys = map[string]bool{
	"page": true, "q": true, "key": true, "ranking": true,
	"identifier": true, "index": true, "ordering": true,
}

// ParsedBody is the normalized result of reading a POST/PUT body,
// regardless of whether it arrived as JSON or multipart.
type ParsedBody struct {
	Fields map[string]any
	Files  []*multipart.FileHeader
	form   *multipart.Form
}

// ParseBody reads r's body as JSON (Content-Type: application/json) or
// multipart/form-data with a "data" field holding the JSON payload. Any
// other content type is a Validation error.
func ParseBody(r *http.Request) (*ParsedBody, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, apierr.Validation("missing or malformed Content-Type header")
	}

	switch {
	case mediaType == "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, apierr.Validation("failed to read request body")
		}
		return parseJSONFields(body, nil)

	case strings.HasPrefix(mediaType, "multipart/"):
		boundary, ok := params["boundary"]
		if !ok {
			return nil, apierr.Validation("multipart request missing boundary")
		}
		form, err := multipart.NewReader(r.Body, boundary).ReadForm(32 << 20)
		if err != nil {
			return nil, apierr.Validation("failed to parse multipart body")
		}

		var payload []byte
		if values, ok := form.Value["data"]; ok && len(values) > 0 {
			payload = []byte(values[0])
		}
		var files []*multipart.FileHeader
		for _, fhs := range form.File {
			files = append(files, fhs...)
		}
		parsed, err := parseJSONFields(payload, files)
		if err != nil {
			return nil, err
		}
		parsed.form = form
		return parsed, nil

	default:
		return nil, apierr.Validation("unsupported Content-Type %q", mediaType)
	}
}

func parseJSONFields(payload []byte, files []*multipart.FileHeader) (*ParsedBody, error) {
	fields := map[string]any{}
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, apierr.Validation("request body is not valid JSON")
		}
	}
	return &ParsedBody{Fields: fields, Files: files}, nil
}

// Close releases any temporary files the multipart reader created.
func (p *ParsedBody) Close() {
	if p.form != nil {
		p.form.RemoveAll()
	}
}

// isAbsent reports whether value counts as absent: missing entirely,
// "", or null (json.Unmarshal's nil).
func isAbsent(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// RequireKeys enforces a required-key set and an optional-key set
// against parsed body fields, returning a single Validation error that
// lists missing required keys and invalid (neither required nor
// optional) keys, both sorted.
func RequireKeys(fields map[string]any, required, optional []string) error {
	requiredSet := map[string]bool{}
	for _, k := range required {
		requiredSet[k] = true
	}
	allowedSet := map[string]bool{}
	for _, k := range required {
		allowedSet[k] = true
	}
	for _, k := range optional {
		allowedSet[k] = true
	}

	var missing []string
	for _, k := range required {
		v, present := fields[k]
		if isAbsent(v, present) {
			missing = append(missing, k)
		}
	}

	var invalid []string
	for k := range fields {
		if !allowedSet[k] {
			invalid = append(invalid, k)
		}
	}

	if len(missing) == 0 && len(invalid) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(invalid)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid field(s): %s", strings.Join(invalid, ", ")))
	}
	return apierr.Validation("%s", strings.Join(parts, "; "))
}

// truthy mirrors Python's notion of falsy applied to a decoded JSON
// value: absent/null, "", and an empty list all count as false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// ResolveIndexMembership extracts `index` (single name) or `indexes`
// (list of names) from fields and resolves them against the
// repository. Three outcomes are distinguished by `present`:
//
//   - Neither key appears (or, when required, appears but empty):
//     present=false, names=nil. When required is true this also
//     returns a Validation error; when false the caller leaves
//     membership untouched.
//   - A key appears but is empty/null and required is false:
//     present=true, names=nil — the caller replaces membership with
//     the empty set, clearing it.
//   - A key carries one or more names: present=true, names=resolved.
//
// Unknown names are always a Validation error listing them, matching
// I1/index-resolution behavior regardless of required.
func ResolveIndexMembership(fields map[string]any, indexes *repository.IndexRepository, required bool) (names []string, present bool, err error) {
	indexVal, indexOK := fields["index"]
	indexesVal, indexesOK := fields["indexes"]

	switch {
	case indexOK && truthy(indexVal):
		s, ok := indexVal.(string)
		if !ok {
			return nil, false, apierr.Validation("'index' must be a string")
		}
		names = []string{s}
	case indexesOK && truthy(indexesVal):
		list, ok := indexesVal.([]any)
		if !ok {
			return nil, false, apierr.Validation("'indexes' must be a list of strings")
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false, apierr.Validation("'indexes' must be a list of strings")
			}
			names = append(names, s)
		}
	case (indexOK || indexesOK) && !required:
		return nil, true, nil
	default:
		if required {
			return nil, false, apierr.Validation("one of 'index' or 'indexes' is required")
		}
		return nil, false, nil
	}

	if _, err := indexes.ResolveNames(names); err != nil {
		return nil, false, err
	}
	return names, true, nil
}

// ExtractFilters collects every query-string key not in ReservedKeys
// as a metadata filter, preserving all values supplied for that key.
func ExtractFilters(query url.Values) map[string][]string {
	filters := map[string][]string{}
	for key, values := range query {
		if ReservedKeys[key] {
			continue
		}
		filters[key] = values
	}
	return filters
}

// CoerceMetadataValue renders an arbitrary JSON-decoded value to its
// string display form, matching the ingest-time coercion the
// repository's set_metadata documentation describes (`true` ->
// "true", `33` -> "33").
func CoerceMetadataValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CoerceMetadataMap applies CoerceMetadataValue across a decoded JSON
// object.
func CoerceMetadataMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = CoerceMetadataValue(v)
	}
	return out
}
