package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store.
	// Returns ErrPhoneExists if the phone is already taken.
	// Returns validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByPhone retrieves a user by their phone number.
	// Returns ErrUserNotFound if the user does not exist.
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	// ExistsByPhone reports whether a user with the phone exists.
	ExistsByPhone(ctx context.Context, phone string) (bool, error)

	// UpdateStatus sets the account status of the user with the given phone.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateStatus(ctx context.Context, phone string, status domain.UserStatus) error

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
