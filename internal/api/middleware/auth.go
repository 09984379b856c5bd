package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/redact"
)

// AccessTokenValidator resolves an access token to the user it was issued to.
type AccessTokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, bool)
}

// UserLoader loads the current state of a user.
type UserLoader interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	tokens AccessTokenValidator
	users  UserLoader
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokens AccessTokenValidator, users UserLoader) *AuthMiddleware {
	if tokens == nil || users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("auth middleware requires a token validator and a user loader")
	}
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Authenticate validates the bearer access token, loads the user it names
// and adds the user's ID and role to the request context. Blocked users are
// refused with 403 even while their token is still valid.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" || strings.Contains(token, " ") {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		userID, ok := m.tokens.ValidateAccessToken(r.Context(), token)
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := m.users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}
			logger.FromContext(r.Context()).Error("failed to load authenticated user",
				slog.String("user_id", userID.String()),
				slog.String("error", redact.Error(err)))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}
		if user.IsBlocked() {
			shared.RespondWithError(w, r, http.StatusForbidden, "User is blocked")
			return
		}

		ctx := shared.WithUser(r.Context(), user.ID, user.Role)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(slog.String("user_id", user.ID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole refuses requests whose authenticated user does not have role.
// It must run after Authenticate.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := shared.UserRole(r.Context())
			if !ok {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}
			if got != role {
				shared.RespondWithError(w, r, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	return shared.UserID(r.Context())
}
