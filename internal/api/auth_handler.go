package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/cards-api/internal/api/shared"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/service/auth"
)

// SessionManager is the part of the session engine the HTTP layer uses.
type SessionManager interface {
	Login(ctx context.Context, phone, password string) (auth.TokenPair, error)
	RotateRefreshToken(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	sessions SessionManager
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(sessions SessionManager, logger *slog.Logger) *AuthHandler {
	if sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("session manager cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

func tokenPairResponse(p auth.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.sessions.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tokenPairResponse(pair))
}

// RefreshTokens handles POST /auth/refresh-tokens. The presented refresh
// token is consumed; replaying it fails with 401.
func (h *AuthHandler) RefreshTokens(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.sessions.RotateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tokenPairResponse(pair))
}

// Logout handles POST /auth/logout. Unknown tokens are accepted.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.sessions.Revoke(r.Context(), req.RefreshToken); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("refresh token revoked")
	w.WriteHeader(http.StatusNoContent)
}
