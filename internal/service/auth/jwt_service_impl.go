package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// tokenKind bundles what differs between access and refresh tokens.
type tokenKind struct {
	name       string
	key        []byte
	lifetime   time.Duration
	errExpired error
	errInvalid error
}

// hmacJWTService is an implementation of JWTService using HMAC-SHA256 signing.
type hmacJWTService struct {
	access    tokenKind
	refresh   tokenKind
	timeFunc  func() time.Time // Injectable for testing
	clockSkew time.Duration    // Leeway for exp/iat checks
}

// jwtCustomClaims defines the structure of JWT claims we use
type jwtCustomClaims struct {
	UserID    uuid.UUID   `json:"uid"`
	Phone     string      `json:"phone"`
	Role      domain.Role `json:"role"`
	TokenType string      `json:"type"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a new JWT service using HMAC-SHA256 signing.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	return newHMACJWTService(cfg, time.Now)
}

func newHMACJWTService(cfg config.AuthConfig, timeFunc func() time.Time) (*hmacJWTService, error) {
	if len(cfg.AccessSecret) < MinSecretLength || len(cfg.RefreshSecret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrWeakSecret, MinSecretLength)
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}

	return &hmacJWTService{
		access: tokenKind{
			name:       TokenTypeAccess,
			key:        []byte(cfg.AccessSecret),
			lifetime:   time.Duration(cfg.AccessTokenLifetimeMinutes) * time.Minute,
			errExpired: ErrExpiredToken,
			errInvalid: ErrInvalidToken,
		},
		refresh: tokenKind{
			name:       TokenTypeRefresh,
			key:        []byte(cfg.RefreshSecret),
			lifetime:   time.Duration(cfg.RefreshTokenLifetimeMinutes) * time.Minute,
			errExpired: ErrExpiredRefreshToken,
			errInvalid: ErrInvalidRefreshToken,
		},
		timeFunc:  timeFunc,
		clockSkew: time.Duration(cfg.ClockSkewSeconds) * time.Second,
	}, nil
}

// GenerateToken creates a signed access token.
func (s *hmacJWTService) GenerateToken(ctx context.Context, id Identity) (SignedToken, error) {
	return s.sign(ctx, s.access, id, s.timeFunc().Add(s.access.lifetime))
}

// GenerateRefreshToken creates a signed refresh token.
func (s *hmacJWTService) GenerateRefreshToken(ctx context.Context, id Identity) (SignedToken, error) {
	return s.sign(ctx, s.refresh, id, s.timeFunc().Add(s.refresh.lifetime))
}

// ValidateToken validates an access token.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, s.access, tokenString)
}

// ValidateRefreshToken validates a refresh token.
func (s *hmacJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	return s.parse(ctx, s.refresh, tokenString)
}

func (s *hmacJWTService) sign(ctx context.Context, kind tokenKind, id Identity, expiresAt time.Time) (SignedToken, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := jwtCustomClaims{
		UserID:    id.UserID,
		Phone:     id.Phone,
		Role:      id.Role,
		TokenType: kind.name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(), // makes every token unique, even within one second
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(kind.key)
	if err != nil {
		log.Error("failed to sign JWT",
			slog.String("error", err.Error()),
			slog.String("user_id", id.UserID.String()),
			slog.String("token_type", kind.name))
		return SignedToken{}, fmt.Errorf("failed to sign %s token with HMAC-SHA256: %w", kind.name, err)
	}

	return SignedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *hmacJWTService) parse(ctx context.Context, kind tokenKind, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx).With(slog.String("token_type", kind.name))
	now := s.timeFunc()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return kind.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired")
			return nil, kind.errExpired
		case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid")
			if kind.name == TokenTypeAccess {
				return nil, ErrTokenNotYetValid
			}
			return nil, kind.errInvalid
		default:
			log.Debug("token validation failed",
				slog.String("error", err.Error()),
				slog.String("error_type", fmt.Sprintf("%T", err)))
			return nil, kind.errInvalid
		}
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims")
		return nil, kind.errInvalid
	}
	if claims.TokenType != kind.name {
		log.Debug("token validation failed: wrong token type", slog.String("actual", claims.TokenType))
		return nil, ErrWrongTokenType
	}
	if claims.UserID == uuid.Nil {
		log.Debug("token validation failed: missing user id")
		return nil, kind.errInvalid
	}

	return &Claims{
		UserID:    claims.UserID,
		Phone:     claims.Phone,
		Role:      claims.Role,
		TokenType: claims.TokenType,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
