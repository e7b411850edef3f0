package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"marketlens/pkg/marketlens"
)

// accessKeyMiddleware accepts the key as a Bearer token or in X-API-Key. An
// empty key disables the check.
func accessKeyMiddleware(accessKey string) func(http.Handler) http.Handler {
	accessKey = strings.TrimSpace(accessKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if accessKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, marketlens.ErrCodeUnauthorized, "missing access key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(accessKey)) != 1 {
				writeError(w, r, http.StatusUnauthorized, marketlens.ErrCodeUnauthorized, "invalid access key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
