package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/shopspring/decimal"
)

// CardCipher encrypts card numbers deterministically, so equal numbers
// produce equal ciphertexts that can be used as lookup keys.
type CardCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TransferRequest moves Amount from the card numbered From to the card
// numbered To. Numbers may contain single spaces or dashes between groups.
type TransferRequest struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// LedgerService moves money between cards.
type LedgerService interface {
	// Transfer moves req.Amount between two cards owned by userID. Either
	// both balances change or neither does.
	Transfer(ctx context.Context, req TransferRequest, userID uuid.UUID) error
}

type ledgerServiceImpl struct {
	uow    store.UnitOfWork
	cipher CardCipher
	logger *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(uow store.UnitOfWork, cipher CardCipher, logger *slog.Logger) (LedgerService, error) {
	if uow == nil {
		return nil, errors.New("ledger service: uow cannot be nil")
	}
	if cipher == nil {
		return nil, errors.New("ledger service: cipher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ledgerServiceImpl{
		uow:    uow,
		cipher: cipher,
		logger: logger.With(slog.String("component", "ledger_service")),
	}, nil
}

// Transfer implements LedgerService.Transfer.
func (s *ledgerServiceImpl) Transfer(ctx context.Context, req TransferRequest, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateAmount(req.Amount); err != nil {
		return err
	}
	fromEnc, err := encryptNumber(s.cipher, req.From)
	if err != nil {
		return err
	}
	toEnc, err := encryptNumber(s.cipher, req.To)
	if err != nil {
		return err
	}

	var from, to *domain.Card
	err = s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		if from, err = lookupCard(ctx, st.Cards, fromEnc, "sender card not found"); err != nil {
			return err
		}
		if to, err = lookupCard(ctx, st.Cards, toEnc, "recipient card not found"); err != nil {
			return err
		}
		if !from.OwnedBy(userID) {
			return domain.Forbidden("sender card belongs to another user")
		}
		if !to.OwnedBy(userID) {
			return domain.Forbidden("recipient card belongs to another user")
		}
		if from.ID == to.ID {
			return domain.InvalidArgument("cards are equal")
		}
		if !from.IsActive() {
			return domain.Forbidden("sender card is not active")
		}
		if !to.IsActive() {
			return domain.Forbidden("recipient card is not active")
		}

		rows, err := st.Cards.GuardedDebit(ctx, from.ID, req.Amount)
		if err != nil {
			return NewServiceError("ledger", "transfer", "failed to debit sender card", err)
		}
		if rows == 0 {
			return domain.Conflict("insufficient funds")
		}
		if err := st.Cards.Credit(ctx, to.ID, req.Amount); err != nil {
			return NewServiceError("ledger", "transfer", "failed to credit recipient card", err)
		}
		return nil
	})
	if err != nil {
		var domainErr *domain.Error
		if !errors.As(err, &domainErr) {
			log.Error("transfer failed",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
		}
		return err
	}

	log.Info("transfer completed",
		slog.String("user_id", userID.String()),
		slog.String("from_card_id", from.ID.String()),
		slog.String("to_card_id", to.ID.String()),
		slog.String("amount", req.Amount.StringFixed(domain.MoneyScale)))
	return nil
}

// encryptNumber normalizes a user-supplied card number and encrypts it.
func encryptNumber(cipher CardCipher, number string) (string, error) {
	normalized, err := domain.NormalizeCardNumber(number)
	if err != nil {
		return "", domain.InvalidArgument("card number must be 16 digits")
	}
	enc, err := cipher.Encrypt(normalized)
	if err != nil {
		return "", NewServiceError("card", "encrypt", "failed to encrypt card number", err)
	}
	return enc, nil
}

// lookupCard fetches a card by encrypted number, turning absence into a
// NotFound error with reason.
func lookupCard(ctx context.Context, cards store.CardStore, enc, reason string) (*domain.Card, error) {
	card, err := cards.GetByEncryptedNumber(ctx, enc)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, domain.NotFound(reason)
		}
		return nil, NewServiceError("card", "lookup", "failed to load card", err)
	}
	return card, nil
}
