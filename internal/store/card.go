package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/shopspring/decimal"
)

// Page selects a window of a listing. Number is zero-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// CardFilter narrows a card listing. Nil fields do not filter.
type CardFilter struct {
	BlockRequested *bool
	OwnerID        *uuid.UUID
}

// CardStore defines the interface for card persistence.
//
// Balances are never written with a read-modify-write cycle: GuardedDebit and
// Credit are single conditional updates evaluated by the store itself.
type CardStore interface {
	// Create saves a new card.
	// Returns ErrCardNumberExists if the encrypted number is already taken.
	Create(ctx context.Context, card *domain.Card) error

	// GetByID retrieves a card by its ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetByEncryptedNumber retrieves a card by its encrypted number.
	// Returns ErrCardNotFound if the card does not exist.
	GetByEncryptedNumber(ctx context.Context, encryptedNumber string) (*domain.Card, error)

	// ExistsByEncryptedNumber reports whether a card with the encrypted number exists.
	ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error)

	// List returns cards matching filter ordered by creation time, newest first.
	List(ctx context.Context, filter CardFilter, page Page) ([]*domain.Card, error)

	// GuardedDebit subtracts amount from the card balance only if the balance
	// covers it, and returns the number of rows changed (0 or 1).
	GuardedDebit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)

	// Credit adds amount to the card balance unconditionally.
	// Returns ErrCardNotFound if the card does not exist.
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// UpdateStatus sets the card status.
	// Returns ErrCardNotFound if the card does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CardStatus) error

	// SetBlockRequested sets or clears the holder's block request flag.
	// Returns ErrCardNotFound if the card does not exist.
	SetBlockRequested(ctx context.Context, id uuid.UUID, requested bool) error

	// ExpireDue marks every non-expired card whose expiry is at or before now
	// as EXPIRED and returns how many cards changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// DeleteByEncryptedNumber removes the card if present and reports whether
	// a row was deleted.
	DeleteByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error)

	// WithTx returns a CardStore that runs its statements in tx.
	WithTx(tx *sql.Tx) CardStore
}
