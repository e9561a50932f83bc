package middleware

import (
	"net/http"

	"techstore/internal/domain"

	"go.uber.org/zap"
)

// RequireRole rejects callers whose role ranks below min
func RequireRole(min domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				logger.Warn("Role not found in context")
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			if !role.AtLeast(min) {
				logger.Warn("User role not authorized",
					zap.String("role", string(role)),
					zap.String("required_role", string(min)),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireModerator allows moderators and admins
func RequireModerator(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(domain.RoleModerator, logger)
}

// RequireAdmin middleware ensures the user has admin role
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin, logger)
}
