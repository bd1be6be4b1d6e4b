package shield

import (
	"net/http"
	"strings"
)

// MaxJSONBody returns middleware that limits the request body size for
// JSON requests. The cap must leave room for full-document HTML replacement
// payloads, which carry an entire page in one JSON field.
// Other content types are passed through untouched.
func MaxJSONBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if strings.HasPrefix(ct, "application/json") || ct == "" {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
