package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, encrypted_number, last_four, owner_id, balance, created_at, expires_at, status, block_requested`

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card   domain.Card
		status string
	)
	err := row.Scan(
		&card.ID,
		&card.EncryptedNumber,
		&card.LastFour,
		&card.OwnerID,
		&card.Balance,
		&card.CreatedAt,
		&card.ExpiresAt,
		&status,
		&card.BlockRequested,
	)
	if err != nil {
		return nil, err
	}
	card.Status = domain.CardStatus(status)
	card.CreatedAt = card.CreatedAt.UTC()
	card.ExpiresAt = card.ExpiresAt.UTC()
	return &card, nil
}

// Create implements store.CardStore.Create
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("invalid card rejected", slog.String("card_id", card.ID.String()), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.EncryptedNumber,
		card.LastFour,
		card.OwnerID,
		card.Balance,
		card.CreatedAt,
		card.ExpiresAt,
		string(card.Status),
		card.BlockRequested,
	)
	if err != nil {
		// The number itself is never logged, even encrypted.
		log.Error("failed to insert card",
			slog.String("card_id", card.ID.String()),
			slog.String("owner_id", card.OwnerID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	return nil
}

func (s *PostgresCardStore) getOne(ctx context.Context, where string, arg any) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE ` + where
	card, err := scanCard(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query card", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return card, nil
}

// GetByID implements store.CardStore.GetByID
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return s.getOne(ctx, "id = $1", id)
}

// GetByEncryptedNumber implements store.CardStore.GetByEncryptedNumber
func (s *PostgresCardStore) GetByEncryptedNumber(ctx context.Context, encryptedNumber string) (*domain.Card, error) {
	return s.getOne(ctx, "encrypted_number = $1", encryptedNumber)
}

// ExistsByEncryptedNumber implements store.CardStore.ExistsByEncryptedNumber
func (s *PostgresCardStore) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE encrypted_number = $1)`,
		encryptedNumber,
	).Scan(&exists)
	if err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// List implements store.CardStore.List
func (s *PostgresCardStore) List(ctx context.Context, filter store.CardFilter, page store.Page) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		conds []string
		args  []any
	)
	if filter.BlockRequested != nil {
		args = append(args, *filter.BlockRequested)
		conds = append(conds, fmt.Sprintf("block_requested = $%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT ` + cardColumns + ` FROM cards`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, page.Size, page.Offset())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list cards", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating card rows", slog.String("error", err.Error()))
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}

	return cards, nil
}

// GuardedDebit implements store.CardStore.GuardedDebit
func (s *PostgresCardStore) GuardedDebit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cards SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		id, amount,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("guarded debit failed",
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("card", "debit", "guarded debit failed", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *PostgresCardStore) exec(ctx context.Context, op string, id uuid.UUID, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("card update failed",
			slog.String("operation", op),
			slog.String("card_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("card", op, "update failed", MapError(err))
	}
	return checkRowsAffected(result, store.ErrCardNotFound)
}

// Credit implements store.CardStore.Credit
func (s *PostgresCardStore) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return s.exec(ctx, "credit", id,
		`UPDATE cards SET balance = balance + $2 WHERE id = $1`, id, amount)
}

// UpdateStatus implements store.CardStore.UpdateStatus
func (s *PostgresCardStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CardStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidStatus)
	}
	return s.exec(ctx, "update_status", id,
		`UPDATE cards SET status = $2 WHERE id = $1`, id, string(status))
}

// SetBlockRequested implements store.CardStore.SetBlockRequested
func (s *PostgresCardStore) SetBlockRequested(ctx context.Context, id uuid.UUID, requested bool) error {
	return s.exec(ctx, "set_block_requested", id,
		`UPDATE cards SET block_requested = $2 WHERE id = $1`, id, requested)
}

// ExpireDue implements store.CardStore.ExpireDue
func (s *PostgresCardStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cards SET status = 'EXPIRED' WHERE status <> 'EXPIRED' AND expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to expire cards", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// DeleteByEncryptedNumber implements store.CardStore.DeleteByEncryptedNumber
func (s *PostgresCardStore) DeleteByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE encrypted_number = $1`, encryptedNumber)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete card", slog.String("error", err.Error()))
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}
