package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sungwon/heartpost/internal/metrics"
)

// SecretAuth returns an HTTP middleware that validates a pre-shared bearer
// secret. A missing header, malformed header, and wrong secret all produce
// the same 401 so the response leaks nothing about which check failed.
func SecretAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bearerSecretMatches(r.Header.Get("Authorization"), secret) {
				metrics.APIAuthFailuresTotal.Inc()
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerSecretMatches checks an Authorization header against the configured
// secret in constant time.
func bearerSecretMatches(header, secret string) bool {
	if secret == "" {
		return false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) == 1
}
