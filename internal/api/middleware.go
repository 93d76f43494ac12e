package api

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// withAuth enforces Scout's single shared API key. An empty apiKey
// means authentication is disabled entirely (open access). The key may
// arrive in the `key` header or the `key` query parameter; a mismatch
// is a plain-text 401, matching the documented AuthFailure contract.
func withAuth(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("key")
		if key == "" {
			key = r.URL.Query().Get("key")
		}
		if key != apiKey {
			log.Printf("scout: authentication failure for key %q", key)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code a handler actually wrote so
// the logging middleware can report it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging tags every request with a correlation id and logs
// method, path, status, and latency once the handler returns.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("scout: [%s] %s %s -> %d (%s)",
			reqID, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
