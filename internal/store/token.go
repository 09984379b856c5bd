package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/cards-api/internal/domain"
)

// TokenStore persists refresh-token records.
type TokenStore interface {
	// Save records a refresh token.
	// Returns ErrTokenExists if the token is already recorded.
	Save(ctx context.Context, token *domain.RefreshToken) error

	// FindByToken retrieves the record for token.
	// Returns ErrRefreshTokenNotFound if there is none.
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)

	// ExistsByToken reports whether a record for token exists.
	ExistsByToken(ctx context.Context, token string) (bool, error)

	// DeleteByToken removes the record for token and reports whether it was
	// present. Exactly one concurrent caller observes true for a given token.
	DeleteByToken(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes records whose expiry is before now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// WithTx returns a TokenStore bound to tx. Stores that cannot take part
	// in SQL transactions return themselves.
	WithTx(tx *sql.Tx) TokenStore
}
