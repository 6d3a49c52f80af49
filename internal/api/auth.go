// Package api implements the HTTP surface of the solver service.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// openPaths never require a token: probes, metrics scrapes, and docs.
var openPaths = map[string]struct{}{
	"/healthz":      {},
	"/readyz":       {},
	"/metrics":      {},
	"/docs":         {},
	"/openapi.yaml": {},
	"/openapi.json": {},
}

// withAuth enforces bearer-token auth when AUTH_MODE=token. The default
// mode "none" passes everything through.
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthMode != "token" || s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := openPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		authz := r.Header.Get("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			tok := strings.TrimSpace(authz[len("Bearer "):])
			if subtle.ConstantTimeCompare([]byte(tok), []byte(s.cfg.AuthToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token", r.URL.Path)
	})
}
