// Package memory is an in-process implementation of the store interfaces.
//
// It backs the "memory" database driver used for local runs and for service
// tests. Semantics follow the Postgres stores: unique keys, guarded debits
// and the same sentinel errors. Units of work are serialized by a single
// mutex and roll back by restoring a snapshot taken when the unit started.
// Reads are not isolated from an in-flight unit.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/store"
)

// DB holds all in-memory state.
type DB struct {
	// txMu serializes units of work against each other and against
	// standalone writes.
	txMu sync.Mutex

	// mu guards the maps below.
	mu     sync.RWMutex
	users  map[uuid.UUID]domain.User
	cards  map[uuid.UUID]domain.Card
	tokens map[string]domain.RefreshToken

	logger *slog.Logger
}

// New creates an empty database.
func New(logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{
		users:  make(map[uuid.UUID]domain.User),
		cards:  make(map[uuid.UUID]domain.Card),
		tokens: make(map[string]domain.RefreshToken),
		logger: logger.With(slog.String("component", "memory_db")),
	}
}

// handle is embedded by every store; inTx is true for stores handed out by a
// unit of work, whose caller already holds txMu.
type handle struct {
	db   *DB
	inTx bool
}

func (h handle) write(fn func() error) error {
	if !h.inTx {
		h.db.txMu.Lock()
		defer h.db.txMu.Unlock()
	}
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	return fn()
}

func (h handle) read(fn func()) {
	h.db.mu.RLock()
	defer h.db.mu.RUnlock()
	fn()
}

// Cards returns a standalone card store.
func (db *DB) Cards() *CardStore { return &CardStore{handle{db: db}} }

// Users returns a standalone user store.
func (db *DB) Users() *UserStore { return &UserStore{handle{db: db}} }

// Tokens returns a standalone refresh-token store.
func (db *DB) Tokens() *TokenStore { return &TokenStore{handle{db: db}} }

type snapshot struct {
	users  map[uuid.UUID]domain.User
	cards  map[uuid.UUID]domain.Card
	tokens map[string]domain.RefreshToken
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return snapshot{
		users:  maps.Clone(db.users),
		cards:  maps.Clone(db.cards),
		tokens: maps.Clone(db.tokens),
	}
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = s.users
	db.cards = s.cards
	db.tokens = s.tokens
}

// UnitOfWork implements store.UnitOfWork for the in-memory backend.
type UnitOfWork struct {
	db     *DB
	tokens store.TokenStore
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a unit of work over db. When tokens is nil the
// in-memory token store takes part in the unit; otherwise the given store is
// used as is and its writes are not rolled back.
func NewUnitOfWork(db *DB, tokens store.TokenStore) *UnitOfWork {
	return &UnitOfWork{db: db, tokens: tokens}
}

// Do runs fn with stores bound to this unit. If fn returns an error or
// panics, every write it made to the in-memory maps is undone.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.db.txMu.Lock()
	defer u.db.txMu.Unlock()

	snap := u.db.snapshot()
	h := handle{db: u.db, inTx: true}
	stores := store.Stores{
		Cards:  &CardStore{h},
		Users:  &UserStore{h},
		Tokens: &TokenStore{h},
	}
	if u.tokens != nil {
		stores.Tokens = u.tokens
	}

	defer func() {
		if p := recover(); p != nil {
			u.db.restore(snap)
			u.db.logger.Error("rolled back unit of work after panic", slog.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(ctx, stores); err != nil {
		u.db.restore(snap)
		u.db.logger.Debug("rolled back unit of work", slog.String("error", err.Error()))
		return err
	}

	return nil
}
