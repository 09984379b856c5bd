package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
)

// TokenPair is an access token and the refresh token that can renew it.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SessionService issues, validates, rotates and revokes session tokens.
//
// A refresh token is redeemable while its record exists in the token store.
// Rotation deletes the record and issues the new pair in one unit of work;
// the store's delete reports a single winner, so a replayed or concurrently
// presented refresh token yields exactly one new pair.
type SessionService struct {
	jwt      JWTService
	users    store.UserStore
	tokens   store.TokenStore
	uow      store.UnitOfWork
	verifier PasswordVerifier
	timeFunc func() time.Time
	logger   *slog.Logger
}

// NewSessionService creates a session service. All collaborators except
// logger are required.
func NewSessionService(
	jwtService JWTService,
	users store.UserStore,
	tokens store.TokenStore,
	uow store.UnitOfWork,
	verifier PasswordVerifier,
	logger *slog.Logger,
) (*SessionService, error) {
	if jwtService == nil || users == nil || tokens == nil || uow == nil || verifier == nil {
		return nil, fmt.Errorf("session service: nil dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		jwt:      jwtService,
		users:    users,
		tokens:   tokens,
		uow:      uow,
		verifier: verifier,
		timeFunc: time.Now,
		logger:   logger.With(slog.String("component", "session_service")),
	}, nil
}

// Login verifies phone and password and issues a token pair.
func (s *SessionService) Login(ctx context.Context, phone, password string) (TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return TokenPair{}, domain.NotFound("user not found")
		}
		return TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsBlocked() {
		log.Info("login refused for blocked user", slog.String("user_id", user.ID.String()))
		return TokenPair{}, domain.Forbidden("user is blocked")
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Info("login failed: wrong password", slog.String("user_id", user.ID.String()))
		return TokenPair{}, domain.Unauthorized("invalid phone or password", nil)
	}

	pair, err := s.IssueTokenPair(ctx, Identity{UserID: user.ID, Phone: user.Phone, Role: user.Role})
	if err != nil {
		return TokenPair{}, err
	}
	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return pair, nil
}

// IssueTokenPair signs a new access/refresh pair for id and records the
// refresh token.
func (s *SessionService) IssueTokenPair(ctx context.Context, id Identity) (TokenPair, error) {
	return s.issue(ctx, s.tokens, id)
}

func (s *SessionService) issue(ctx context.Context, tokens store.TokenStore, id Identity) (TokenPair, error) {
	access, err := s.jwt.GenerateToken(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, id)
	if err != nil {
		return TokenPair{}, err
	}

	rec, err := domain.NewRefreshToken(refresh.Token, refresh.ExpiresAt, s.timeFunc())
	if err != nil {
		return TokenPair{}, err
	}
	if err := tokens.Save(ctx, rec); err != nil {
		return TokenPair{}, fmt.Errorf("failed to record refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// ValidateAccessToken reports the user an access token was issued for. It
// never fails loudly: any problem yields false.
func (s *SessionService) ValidateAccessToken(ctx context.Context, token string) (uuid.UUID, bool) {
	if token == "" {
		return uuid.Nil, false
	}
	claims, err := s.jwt.ValidateToken(ctx, token)
	if err != nil {
		return uuid.Nil, false
	}
	return claims.UserID, true
}

// RotateRefreshToken redeems old and returns a fresh pair. The old token
// stops being redeemable whether or not rotation succeeds.
func (s *SessionService) RotateRefreshToken(ctx context.Context, old string) (TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claims, err := s.jwt.ValidateRefreshToken(ctx, old)
	if err != nil {
		return TokenPair{}, domain.Unauthorized("invalid refresh token", err)
	}

	var (
		pair   TokenPair
		denial error
	)
	err = s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		rec, err := st.Tokens.FindByToken(ctx, old)
		if err != nil {
			if errors.Is(err, store.ErrRefreshTokenNotFound) {
				return domain.Unauthorized("refresh token has been revoked or already used", nil)
			}
			return fmt.Errorf("failed to look up refresh token: %w", err)
		}

		deleted, err := st.Tokens.DeleteByToken(ctx, old)
		if err != nil {
			return fmt.Errorf("failed to consume refresh token: %w", err)
		}
		if !deleted {
			return domain.Unauthorized("refresh token has been revoked or already used", nil)
		}

		// The deletion above must commit in the two cases below, so they set
		// denial and return nil.
		if rec.ExpiredAt(s.timeFunc()) {
			denial = domain.Unauthorized("refresh token has expired", ErrExpiredRefreshToken)
			return nil
		}

		user, err := st.Users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				denial = domain.Unauthorized("user no longer exists", nil)
				return nil
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user.IsBlocked() {
			denial = domain.Forbidden("user is blocked")
			return nil
		}

		pair, err = s.issue(ctx, st.Tokens, Identity{UserID: user.ID, Phone: user.Phone, Role: user.Role})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			log.Info("refresh token rejected", slog.String("user_id", claims.UserID.String()))
		}
		return TokenPair{}, err
	}
	if denial != nil {
		log.Info("refresh token consumed without reissue",
			slog.String("user_id", claims.UserID.String()),
			slog.String("reason", denial.Error()))
		return TokenPair{}, denial
	}

	log.Debug("refresh token rotated", slog.String("user_id", claims.UserID.String()))
	return pair, nil
}

// Revoke deletes the record for token. Revoking an unknown or already
// revoked token is not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.tokens.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}
