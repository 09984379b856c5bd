package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/cards-api/internal/store"
)

// UnitOfWork implements store.UnitOfWork with one SQL transaction per call.
type UnitOfWork struct {
	db     *sql.DB
	cards  *PostgresCardStore
	users  *PostgresUserStore
	tokens store.TokenStore
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a unit of work over db. tokens may be a store that
// lives outside Postgres (redis); its WithTx returns itself, so its writes
// are not part of the transaction. A nil tokens uses the refresh_tokens table.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger, tokens store.TokenStore) *UnitOfWork {
	if db == nil {
		panic("db cannot be nil")
	}
	if tokens == nil {
		tokens = NewPostgresTokenStore(db, logger)
	}
	return &UnitOfWork{
		db:     db,
		cards:  NewPostgresCardStore(db, logger),
		users:  NewPostgresUserStore(db, logger),
		tokens: tokens,
	}
}

// Do implements store.UnitOfWork.Do.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return store.RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Cards:  u.cards.WithTx(tx),
			Users:  u.users.WithTx(tx),
			Tokens: u.tokens.WithTx(tx),
		})
	})
}
