package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyToken is returned when a refresh-token record has no token value.
var ErrEmptyToken = errors.New("refresh token cannot be empty")

// RefreshToken records that a signed refresh token is still redeemable.
// Rotation and logout delete the record; once ExpiresAt has passed it is
// dead even if it has not been purged yet.
type RefreshToken struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRefreshToken creates a record for token expiring at expiresAt.
func NewRefreshToken(token string, expiresAt, now time.Time) (*RefreshToken, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &RefreshToken{
		ID:        uuid.New(),
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now.UTC(),
	}, nil
}

// ExpiredAt reports whether the record is dead at now.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
