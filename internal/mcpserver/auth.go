package mcpserver

import (
	"net/http"

	"github.com/snappy-loop/podcasts/internal/auth"
)

// AuthMiddleware returns an http middleware that validates Authorization: Bearer <token>
// using auth.Service. On failure it responds with 401 JSON and does not call next.
func AuthMiddleware(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !authService.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authService.Authorize(r); err != nil {
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
