package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
)

const userColumns = `id, name, surname, patronymic, phone, hashed_password, role, status, created_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("invalid user rejected", slog.String("error", err.Error()))
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.Name,
		user.Surname,
		user.Patronymic,
		user.Phone,
		user.HashedPassword,
		string(user.Role),
		string(user.Status),
		user.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("phone already registered", slog.String("user_id", user.ID.String()))
		} else {
			log.Error("failed to insert user",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
		}
		return MapError(err)
	}

	log.Debug("user created", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *PostgresUserStore) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		user         domain.User
		role, status string
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Patronymic,
		&user.Phone,
		&user.HashedPassword,
		&role,
		&status,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query user", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	user.Role = domain.Role(role)
	user.Status = domain.UserStatus(status)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByPhone implements store.UserStore.GetByPhone
func (s *PostgresUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.getOne(ctx, "phone = $1", phone)
}

// ExistsByPhone implements store.UserStore.ExistsByPhone
func (s *PostgresUserStore) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// UpdateStatus implements store.UserStore.UpdateStatus
func (s *PostgresUserStore) UpdateStatus(ctx context.Context, phone string, status domain.UserStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidStatus)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET status = $2 WHERE phone = $1`, phone, string(status))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update user status", slog.String("error", err.Error()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrUserNotFound)
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}
