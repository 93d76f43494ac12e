// Package api implements Scout's REST surface: URL routing, verb
// dispatch, JSON/multipart request handling, serialization, the
// authentication gate, and the error-to-status mapping documented in
// Scout's error handling design.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/coleifer/scout/internal/apierr"
)

// writeJSON serializes body as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("scout: failed to encode response: %v", err)
	}
}

// writeError maps err to Scout's documented status code and body. A
// KindAuthFailure error is written as plain text per the auth gate's
// contract; every other kind gets the `{"error": "..."}` JSON body.
// An error that isn't a typed *apierr.Error is treated as an
// EngineFailure: its cause is logged, never returned to the client.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		apiErr = apierr.Engine(err)
	}

	if apiErr.Kind == apierr.KindEngineFailure {
		log.Printf("scout: internal error: %v", apiErr)
	}

	status := statusForKind(apiErr.Kind)
	if apiErr.Kind == apierr.KindAuthFailure {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(apiErr.Message))
		return
	}

	writeJSON(w, status, map[string]string{"error": apiErr.Message})
}

func statusForKind(kind apierr.Kind) int {
	switch kind {
	case apierr.KindValidation, apierr.KindConflict:
		return http.StatusBadRequest
	case apierr.KindNotFound:
		return http.StatusNotFound
	case apierr.KindAuthFailure:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
