// Package cors implements the teacher's origin-allowlist CORS handler,
// generalized to take its allowed-origin list as a constructor argument
// instead of reading CORS_ALLOWED_ORIGINS itself, so the rule that only
// bootstrap.LoadConfig reads the environment holds for middleware too.
package cors

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Middleware wraps httprouter.Handle values with an Origin allowlist check.
type Middleware struct {
	origins map[string]bool
}

// New builds a Middleware allowing exactly the given origins.
func New(allowedOrigins []string) *Middleware {
	m := &Middleware{origins: make(map[string]bool, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		m.origins[o] = true
	}
	return m
}

// Handler wraps h, setting Access-Control-Allow-Origin when the request's
// Origin header is in the allowlist and short-circuiting CORS preflight
// OPTIONS requests.
func (m *Middleware) Handler(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if origin := r.Header.Get("Origin"); origin != "" && m.origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept-Encoding, If-None-Match")
			w.WriteHeader(http.StatusOK)
			return
		}

		h(w, r, ps)
	}
}
