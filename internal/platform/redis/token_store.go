// Package redis stores refresh-token records in Redis.
//
// Keys are the SHA-256 of the token so raw tokens never appear in the
// keyspace. Each key expires with its record, so expired tokens disappear on
// their own and DeleteExpired has nothing to do. The store cannot take part
// in SQL transactions; WithTx returns the store itself.
package redis

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cards"

type tokenRecord struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"exp"`
	CreatedAt int64  `json:"iat"`
}

// TokenStore implements store.TokenStore on Redis.
type TokenStore struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

var _ store.TokenStore = (*TokenStore)(nil)

// NewClient builds a Redis client from cfg.
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewTokenStore creates a token store. An empty prefix uses "cards".
func NewTokenStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *TokenStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With(slog.String("component", "redis_token_store")),
	}
}

func (s *TokenStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":rt:" + hex.EncodeToString(sum[:])
}

func unavailable(err error) error {
	return fmt.Errorf("%w: redis: %v", store.ErrUnavailable, err)
}

// Save implements store.TokenStore.Save.
func (s *TokenStore) Save(ctx context.Context, token *domain.RefreshToken) error {
	if token.Token == "" {
		return domain.ErrEmptyToken
	}

	payload, err := json.Marshal(tokenRecord{
		ID:        token.ID.String(),
		ExpiresAt: token.ExpiresAt.Unix(),
		CreatedAt: token.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode refresh token record: %w", err)
	}

	ttl := token.ExpiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}

	ok, err := s.client.SetNX(ctx, s.key(token.Token), payload, ttl).Result()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save refresh token",
			slog.String("token_id", token.ID.String()),
			slog.String("error", err.Error()))
		return unavailable(err)
	}
	if !ok {
		return store.ErrTokenExists
	}
	return nil
}

// FindByToken implements store.TokenStore.FindByToken.
func (s *TokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrRefreshTokenNotFound
		}
		return nil, unavailable(err)
	}

	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token record: %w", err)
	}
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode refresh token id: %w", err)
	}

	return &domain.RefreshToken{
		ID:        id,
		Token:     token,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0).UTC(),
		CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(),
	}, nil
}

// ExistsByToken implements store.TokenStore.ExistsByToken.
func (s *TokenStore) ExistsByToken(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// DeleteByToken implements store.TokenStore.DeleteByToken. DEL is atomic, so
// only one of several concurrent callers sees a deleted count of one.
func (s *TokenStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(token)).Result()
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete refresh token",
			slog.String("error", err.Error()))
		return false, unavailable(err)
	}
	return n > 0, nil
}

// DeleteExpired implements store.TokenStore.DeleteExpired. Keys expire by
// TTL, so there is never anything to purge.
func (s *TokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// WithTx implements store.TokenStore.WithTx.
func (s *TokenStore) WithTx(_ *sql.Tx) store.TokenStore {
	return s
}

// Ping checks connectivity.
func (s *TokenStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
