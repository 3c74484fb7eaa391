package middleware

import (
	"net/http"

	"clinic-dashboard/pkg/jwt"
	"clinic-dashboard/pkg/response"
)

// RequireRole creates a middleware that checks if the caller has any of the given roles.
// Role is read from context (set by AuthMiddleware).
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			for _, allowed := range allowedRoles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "You don't have permission to access this resource")
		})
	}
}

// RequireAdmin guards dataset maintenance endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(jwt.RoleAdmin)(next)
}
