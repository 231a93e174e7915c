package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authentication rejects requests that do not carry the API key, either in the
// X-API-Key header or as a bearer token.
func Authentication(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if key == "" || subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
