package service

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/cardcrypto"
	"github.com/phrazzld/cards-api/internal/platform/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "test-card-encryption-key-32-chars!!"

// Valid Luhn numbers used across the tests.
const (
	numberA = "4000001234567899"
	numberB = "4000009876543219"
	numberC = "5500000000000004"
)

type fixture struct {
	db     *memory.DB
	uow    *memory.UnitOfWork
	cipher *cardcrypto.Cipher
	holder *domain.User
	other  *domain.User
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cipher, err := cardcrypto.New(testEncryptionKey)
	require.NoError(t, err)

	db := memory.New(nil)
	f := &fixture{
		db:     db,
		uow:    memory.NewUnitOfWork(db, nil),
		cipher: cipher,
		now:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.holder = f.addUser(t, "+79990000001", "Ivan")
	f.other = f.addUser(t, "+79990000002", "Petr")
	return f
}

func (f *fixture) addUser(t *testing.T, phone, name string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(name, "Ivanov", "Ivanovich", phone, "hash", domain.RoleUser)
	require.NoError(t, err)
	require.NoError(t, f.db.Users().Create(context.Background(), user))
	return user
}

// addCard stores an ACTIVE card for owner with the given plaintext number and
// balance.
func (f *fixture) addCard(t *testing.T, owner *domain.User, number, balance string) *domain.Card {
	t.Helper()
	enc, err := f.cipher.Encrypt(number)
	require.NoError(t, err)
	card, err := domain.NewCard(enc, domain.LastFour(number), owner.ID, f.now, 3)
	require.NoError(t, err)
	card.Balance = decimal.RequireFromString(balance)
	require.NoError(t, f.db.Cards().Create(context.Background(), card))
	return card
}

func (f *fixture) card(t *testing.T, number string) *domain.Card {
	t.Helper()
	enc, err := f.cipher.Encrypt(number)
	require.NoError(t, err)
	card, err := f.db.Cards().GetByEncryptedNumber(context.Background(), enc)
	require.NoError(t, err)
	return card
}

func testCardsConfig() config.CardsConfig {
	return config.CardsConfig{
		EncryptionKey:         testEncryptionKey,
		ValidityYears:         3,
		MaxGenerationAttempts: 5,
	}
}
