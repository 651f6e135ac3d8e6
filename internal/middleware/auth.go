package middleware

import (
	"net/http"
	"strings"

	"github.com/snapfeed/service/internal/auth"
	"github.com/snapfeed/service/internal/response"
)

// RequireAuth returns middleware that extracts the Bearer credential,
// verifies it through the gate, and injects the resulting Identity into the
// request context. Handlers behind it never verify tokens themselves.
func RequireAuth(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			ident, err := gate.Authenticate(parts[1])
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), ident)))
		})
	}
}
