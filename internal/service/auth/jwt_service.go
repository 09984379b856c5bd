package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Identity is the subject a token pair is issued for.
type Identity struct {
	UserID uuid.UUID
	Phone  string
	Role   domain.Role
}

// SignedToken is a compact JWT together with its expiry.
type SignedToken struct {
	Token     string
	ExpiresAt time.Time
}

// JWTService defines operations for managing JWT authentication tokens.
// Access and refresh tokens are signed with different keys, so one kind never
// verifies as the other.
type JWTService interface {
	// GenerateToken creates a signed access token for id.
	GenerateToken(ctx context.Context, id Identity) (SignedToken, error)

	// ValidateToken validates an access token and extracts its claims.
	// Returns ErrExpiredToken, ErrWrongTokenType or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed refresh token for id.
	GenerateRefreshToken(ctx context.Context, id Identity) (SignedToken, error)

	// ValidateRefreshToken validates a refresh token and extracts its claims.
	// Returns ErrExpiredRefreshToken, ErrWrongTokenType or
	// ErrInvalidRefreshToken on failure.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	UserID    uuid.UUID   `json:"uid,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	TokenType string      `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
