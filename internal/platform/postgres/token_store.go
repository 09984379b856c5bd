package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
)

// PostgresTokenStore implements store.TokenStore on the refresh_tokens table.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a token store. If logger is nil, a default
// logger will be used.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Save implements store.TokenStore.Save
func (s *PostgresTokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	if token.Token == "" {
		return domain.ErrEmptyToken
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID, token.Token, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save refresh token",
			slog.String("token_id", token.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// FindByToken implements store.TokenStore.FindByToken
func (s *PostgresTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var rec domain.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, expires_at, created_at FROM refresh_tokens WHERE token = $1`,
		token,
	).Scan(&rec.ID, &rec.Token, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRefreshTokenNotFound
		}
		return nil, MapError(err)
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// ExistsByToken implements store.TokenStore.ExistsByToken
func (s *PostgresTokenStore) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token = $1)`, token,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// DeleteByToken implements store.TokenStore.DeleteByToken. The row lock taken
// by DELETE makes a concurrent second delete of the same token report zero rows.
func (s *PostgresTokenStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete refresh token", slog.String("error", err.Error()))
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired implements store.TokenStore.DeleteExpired
func (s *PostgresTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to purge refresh tokens", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{
		db:     tx,
		logger: s.logger,
	}
}
