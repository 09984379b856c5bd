package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/shopspring/decimal"
)

// cardPayloadDigits is the number of random digits before the check digit.
const cardPayloadDigits = domain.CardNumberLength - 1

// NumberSource yields random decimal digit strings for new card numbers.
type NumberSource interface {
	Digits(n int) (string, error)
}

// cryptoDigits draws digits from crypto/rand.
type cryptoDigits struct{}

func (cryptoDigits) Digits(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// CardInfo is the administrator's view of a card.
type CardInfo struct {
	ID             uuid.UUID         `json:"id"`
	MaskedNumber   string            `json:"masked_number"`
	OwnerName      string            `json:"owner_name"`
	OwnerPhone     string            `json:"owner_phone"`
	Balance        decimal.Decimal   `json:"balance"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Status         domain.CardStatus `json:"status"`
	BlockRequested bool              `json:"block_requested"`
}

// MyCardInfo is the holder's view of one of their cards.
type MyCardInfo struct {
	ID             uuid.UUID         `json:"id"`
	MaskedNumber   string            `json:"masked_number"`
	Balance        decimal.Decimal   `json:"balance"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Status         domain.CardStatus `json:"status"`
	BlockRequested bool              `json:"block_requested"`
}

// NewMyCardInfo builds the holder's view of card.
func NewMyCardInfo(card *domain.Card) MyCardInfo {
	return MyCardInfo{
		ID:             card.ID,
		MaskedNumber:   card.MaskedNumber(),
		Balance:        card.Balance,
		CreatedAt:      card.CreatedAt,
		ExpiresAt:      card.ExpiresAt,
		Status:         card.Status,
		BlockRequested: card.BlockRequested,
	}
}

// CardService provides card provisioning, administration and holder
// operations. Card numbers are accepted in plaintext and never leave the
// service unencrypted except as the last four digits.
type CardService interface {
	// GenerateCard issues a new ACTIVE card with a zero balance to the user
	// with ownerPhone.
	GenerateCard(ctx context.Context, ownerPhone string) (*domain.Card, error)

	// DeleteCard removes the card. Deleting an unknown card is a no-op.
	DeleteCard(ctx context.Context, number string) error

	// ChangeCardStatus sets the card status to ACTIVE or BLOCKED.
	ChangeCardStatus(ctx context.Context, number string, status domain.CardStatus) error

	// ListCards pages through all cards, newest first.
	ListCards(ctx context.Context, page store.Page) ([]CardInfo, error)

	// ListBlockRequests pages through cards whose holder asked for a block.
	ListBlockRequests(ctx context.Context, page store.Page) ([]CardInfo, error)

	// ListMyCards pages through the cards owned by userID.
	ListMyCards(ctx context.Context, userID uuid.UUID, page store.Page) ([]MyCardInfo, error)

	// RequestBlock flags the holder's card for blocking by an administrator.
	RequestBlock(ctx context.Context, number string, userID uuid.UUID) error

	// GetBalance returns the balance of the holder's card.
	GetBalance(ctx context.Context, number string, userID uuid.UUID) (decimal.Decimal, error)

	// ExpireCards marks every card past its expiry as EXPIRED.
	ExpireCards(ctx context.Context, now time.Time) (int64, error)
}

// CardServiceOption customizes a CardService.
type CardServiceOption func(*cardServiceImpl)

// WithNumberSource replaces the random digit source.
func WithNumberSource(src NumberSource) CardServiceOption {
	return func(s *cardServiceImpl) { s.numbers = src }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CardServiceOption {
	return func(s *cardServiceImpl) { s.timeFunc = now }
}

type cardServiceImpl struct {
	cards         store.CardStore
	users         store.UserStore
	uow           store.UnitOfWork
	cipher        CardCipher
	numbers       NumberSource
	validityYears int
	maxAttempts   int
	timeFunc      func() time.Time
	logger        *slog.Logger
}

// NewCardService creates a CardService.
// It returns an error if any of the required dependencies are nil.
func NewCardService(
	cards store.CardStore,
	users store.UserStore,
	uow store.UnitOfWork,
	cipher CardCipher,
	cfg config.CardsConfig,
	logger *slog.Logger,
	opts ...CardServiceOption,
) (CardService, error) {
	if cards == nil || users == nil || uow == nil || cipher == nil {
		return nil, errors.New("card service: nil dependency")
	}
	if cfg.ValidityYears <= 0 || cfg.MaxGenerationAttempts <= 0 {
		return nil, fmt.Errorf("card service: validity years and generation attempts must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &cardServiceImpl{
		cards:         cards,
		users:         users,
		uow:           uow,
		cipher:        cipher,
		numbers:       cryptoDigits{},
		validityYears: cfg.ValidityYears,
		maxAttempts:   cfg.MaxGenerationAttempts,
		timeFunc:      time.Now,
		logger:        logger.With(slog.String("component", "card_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateCard implements CardService.GenerateCard.
func (s *cardServiceImpl) GenerateCard(ctx context.Context, ownerPhone string) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	owner, err := s.users.GetByPhone(ctx, ownerPhone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, NewServiceError("card", "generate", "failed to load owner", err)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		payload, err := s.numbers.Digits(cardPayloadDigits)
		if err != nil {
			return nil, NewServiceError("card", "generate", "failed to draw card number", err)
		}
		number := payload + strconv.Itoa(domain.LuhnCheckDigit(payload))

		enc, err := s.cipher.Encrypt(number)
		if err != nil {
			return nil, NewServiceError("card", "generate", "failed to encrypt card number", err)
		}

		exists, err := s.cards.ExistsByEncryptedNumber(ctx, enc)
		if err != nil {
			return nil, NewServiceError("card", "generate", "failed to check card number", err)
		}
		if exists {
			log.Debug("card number collision, regenerating", slog.Int("attempt", attempt))
			continue
		}

		card, err := domain.NewCard(enc, domain.LastFour(number), owner.ID, s.timeFunc(), s.validityYears)
		if err != nil {
			return nil, NewServiceError("card", "generate", "failed to build card", err)
		}
		if err := s.cards.Create(ctx, card); err != nil {
			if errors.Is(err, store.ErrCardNumberExists) {
				log.Debug("card number taken concurrently, regenerating", slog.Int("attempt", attempt))
				continue
			}
			return nil, NewServiceError("card", "generate", "failed to save card", err)
		}

		log.Info("card issued",
			slog.String("card_id", card.ID.String()),
			slog.String("owner_id", owner.ID.String()),
			slog.String("last_four", card.LastFour))
		return card, nil
	}

	log.Error("card number generation exhausted", slog.Int("attempts", s.maxAttempts))
	return nil, domain.Conflict("could not generate a unique card number")
}

// DeleteCard implements CardService.DeleteCard.
func (s *cardServiceImpl) DeleteCard(ctx context.Context, number string) error {
	enc, err := encryptNumber(s.cipher, number)
	if err != nil {
		return err
	}
	deleted, err := s.cards.DeleteByEncryptedNumber(ctx, enc)
	if err != nil {
		return NewServiceError("card", "delete", "failed to delete card", err)
	}
	if deleted {
		logger.FromContextOrDefault(ctx, s.logger).Info("card deleted",
			slog.String("last_four", domain.LastFour(mustNormalize(number))))
	}
	return nil
}

// ChangeCardStatus implements CardService.ChangeCardStatus. Blocking a card
// also clears its holder's block request.
func (s *cardServiceImpl) ChangeCardStatus(ctx context.Context, number string, status domain.CardStatus) error {
	if !status.Valid() {
		return domain.InvalidArgument("unknown card status")
	}
	enc, err := encryptNumber(s.cipher, number)
	if err != nil {
		return err
	}

	return s.uow.Do(ctx, func(ctx context.Context, st store.Stores) error {
		card, err := lookupCard(ctx, st.Cards, enc, "card not found")
		if err != nil {
			return err
		}
		if err := domain.CheckStatusTransition(card.Status, status); err != nil {
			return err
		}
		if err := st.Cards.UpdateStatus(ctx, card.ID, status); err != nil {
			return NewServiceError("card", "change_status", "failed to update status", err)
		}
		if status == domain.CardStatusBlocked && card.BlockRequested {
			if err := st.Cards.SetBlockRequested(ctx, card.ID, false); err != nil {
				return NewServiceError("card", "change_status", "failed to clear block request", err)
			}
		}
		logger.FromContextOrDefault(ctx, s.logger).Info("card status changed",
			slog.String("card_id", card.ID.String()),
			slog.String("from", string(card.Status)),
			slog.String("to", string(status)))
		return nil
	})
}

// ListCards implements CardService.ListCards.
func (s *cardServiceImpl) ListCards(ctx context.Context, page store.Page) ([]CardInfo, error) {
	return s.listWithOwners(ctx, store.CardFilter{}, page)
}

// ListBlockRequests implements CardService.ListBlockRequests.
func (s *cardServiceImpl) ListBlockRequests(ctx context.Context, page store.Page) ([]CardInfo, error) {
	requested := true
	return s.listWithOwners(ctx, store.CardFilter{BlockRequested: &requested}, page)
}

func (s *cardServiceImpl) listWithOwners(ctx context.Context, filter store.CardFilter, page store.Page) ([]CardInfo, error) {
	cards, err := s.cards.List(ctx, filter, page)
	if err != nil {
		return nil, NewServiceError("card", "list", "failed to list cards", err)
	}

	owners := make(map[uuid.UUID]*domain.User)
	infos := make([]CardInfo, 0, len(cards))
	for _, card := range cards {
		owner, ok := owners[card.OwnerID]
		if !ok {
			owner, err = s.users.GetByID(ctx, card.OwnerID)
			if err != nil {
				return nil, NewServiceError("card", "list", "failed to load card owner", err)
			}
			owners[card.OwnerID] = owner
		}
		infos = append(infos, CardInfo{
			ID:             card.ID,
			MaskedNumber:   card.MaskedNumber(),
			OwnerName:      owner.FullName(),
			OwnerPhone:     owner.Phone,
			Balance:        card.Balance,
			CreatedAt:      card.CreatedAt,
			ExpiresAt:      card.ExpiresAt,
			Status:         card.Status,
			BlockRequested: card.BlockRequested,
		})
	}
	return infos, nil
}

// ListMyCards implements CardService.ListMyCards.
func (s *cardServiceImpl) ListMyCards(ctx context.Context, userID uuid.UUID, page store.Page) ([]MyCardInfo, error) {
	cards, err := s.cards.List(ctx, store.CardFilter{OwnerID: &userID}, page)
	if err != nil {
		return nil, NewServiceError("card", "list_mine", "failed to list cards", err)
	}
	infos := make([]MyCardInfo, 0, len(cards))
	for _, card := range cards {
		infos = append(infos, NewMyCardInfo(card))
	}
	return infos, nil
}

// ownedCard resolves number to a card owned by userID.
func (s *cardServiceImpl) ownedCard(ctx context.Context, number string, userID uuid.UUID) (*domain.Card, error) {
	enc, err := encryptNumber(s.cipher, number)
	if err != nil {
		return nil, err
	}
	card, err := lookupCard(ctx, s.cards, enc, "card not found")
	if err != nil {
		return nil, err
	}
	if !card.OwnedBy(userID) {
		return nil, domain.Forbidden("card belongs to another user")
	}
	return card, nil
}

// RequestBlock implements CardService.RequestBlock.
func (s *cardServiceImpl) RequestBlock(ctx context.Context, number string, userID uuid.UUID) error {
	card, err := s.ownedCard(ctx, number, userID)
	if err != nil {
		return err
	}
	switch card.Status {
	case domain.CardStatusBlocked:
		return domain.Conflict("card is already blocked")
	case domain.CardStatusExpired:
		return domain.Conflict("card is expired")
	}

	if err := s.cards.SetBlockRequested(ctx, card.ID, true); err != nil {
		return NewServiceError("card", "request_block", "failed to flag card", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("card block requested",
		slog.String("card_id", card.ID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// GetBalance implements CardService.GetBalance.
func (s *cardServiceImpl) GetBalance(ctx context.Context, number string, userID uuid.UUID) (decimal.Decimal, error) {
	card, err := s.ownedCard(ctx, number, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return card.Balance, nil
}

// ExpireCards implements CardService.ExpireCards.
func (s *cardServiceImpl) ExpireCards(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.cards.ExpireDue(ctx, now)
	if err != nil {
		return 0, NewServiceError("card", "expire", "failed to expire cards", err)
	}
	return n, nil
}

// mustNormalize returns the normalized number or the input unchanged. Only
// used after encryptNumber has validated the input.
func mustNormalize(number string) string {
	normalized, err := domain.NormalizeCardNumber(number)
	if err != nil {
		return number
	}
	return normalized
}
