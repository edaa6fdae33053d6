package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth requires an "Authorization: Bearer <token>" header matching
// token exactly, compared with subtle.ConstantTimeCompare so that the time
// taken does not depend on the token's contents. A supplied token of a
// different length is rejected at once, so the length itself is not
// hidden. An empty token disables the check entirely —
// used for local development without an AUTH_TOKEN configured.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			supplied := strings.TrimPrefix(header, prefix)
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
