// Package api implements the Raiz REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware guards the project API with a static Bearer token. A local
// single-researcher setup runs with auth disabled; enabling it is for
// exposing a project over a network. Token comparison is constant-time.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="raiz"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("missing or invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
