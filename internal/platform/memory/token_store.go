package memory

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/store"
)

// TokenStore implements store.TokenStore in memory.
type TokenStore struct {
	handle
}

var _ store.TokenStore = (*TokenStore)(nil)

// Save implements store.TokenStore.Save.
func (s *TokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	if token.Token == "" {
		return domain.ErrEmptyToken
	}
	return s.write(func() error {
		if _, ok := s.db.tokens[token.Token]; ok {
			return store.ErrTokenExists
		}
		s.db.tokens[token.Token] = *token
		return nil
	})
}

// FindByToken implements store.TokenStore.FindByToken.
func (s *TokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var (
		rec domain.RefreshToken
		ok  bool
	)
	s.read(func() { rec, ok = s.db.tokens[token] })
	if !ok {
		return nil, store.ErrRefreshTokenNotFound
	}
	return &rec, nil
}

// ExistsByToken implements store.TokenStore.ExistsByToken.
func (s *TokenStore) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var ok bool
	s.read(func() { _, ok = s.db.tokens[token] })
	return ok, nil
}

// DeleteByToken implements store.TokenStore.DeleteByToken.
func (s *TokenStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	var deleted bool
	err := s.write(func() error {
		if _, ok := s.db.tokens[token]; ok {
			delete(s.db.tokens, token)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// DeleteExpired implements store.TokenStore.DeleteExpired.
func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.write(func() error {
		for key, rec := range s.db.tokens {
			if rec.ExpiresAt.Before(now) {
				delete(s.db.tokens, key)
				n++
			}
		}
		return nil
	})
	return n, err
}

// WithTx implements store.TokenStore.WithTx.
func (s *TokenStore) WithTx(_ *sql.Tx) store.TokenStore {
	return s
}
