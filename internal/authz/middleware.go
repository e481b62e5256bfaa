package authz

import (
	"net/http"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// RequireRole returns a middleware that ensures the requester holds the
// required role. Privileged registry operations are gated with RoleAdmin.
func RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromRequest(r)
			if !ok || (required == models.RoleAdmin && !ident.IsAdmin()) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
