package middleware

import (
	"context"
	"net/http"
	"strings"

	"techstore/internal/domain"
	"techstore/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenParser verifies signed tokens of a given type
type TokenParser interface {
	Parse(token, wantType string) (*service.Claims, error)
}

// Identity is the authenticated caller as decoded from the access token
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   domain.Role
}

// AuthMiddleware validates bearer access tokens and stores the caller identity
func AuthMiddleware(tokens TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			// Refresh tokens are only good for /auth/refresh
			claims, err := tokens.Parse(tokenString, service.TokenTypeAccess)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			identity := Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
			ctx := WithIdentity(r.Context(), identity)

			logger.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.String("role", string(identity.Role)),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity stores the caller identity in ctx
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the caller identity from request context
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := GetIdentity(ctx)
	return identity.UserID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (domain.Role, bool) {
	identity, ok := GetIdentity(ctx)
	return identity.Role, ok
}
