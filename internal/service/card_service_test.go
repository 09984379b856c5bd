package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDigits returns the queued payloads in order, then fails.
type scriptedDigits struct {
	payloads []string
	calls    int
}

func (s *scriptedDigits) Digits(n int) (string, error) {
	if s.calls >= len(s.payloads) {
		return "", errors.New("no more payloads")
	}
	p := s.payloads[s.calls]
	s.calls++
	return p[:n], nil
}

func newCardService(t *testing.T, f *fixture, opts ...CardServiceOption) CardService {
	t.Helper()
	opts = append([]CardServiceOption{WithClock(func() time.Time { return f.now })}, opts...)
	svc, err := NewCardService(f.db.Cards(), f.db.Users(), f.uow, f.cipher, testCardsConfig(), nil, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewCardServiceValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := NewCardService(nil, f.db.Users(), f.uow, f.cipher, testCardsConfig(), nil)
	assert.Error(t, err)

	cfg := testCardsConfig()
	cfg.MaxGenerationAttempts = 0
	_, err = NewCardService(f.db.Cards(), f.db.Users(), f.uow, f.cipher, cfg, nil)
	assert.Error(t, err)
}

func TestGenerateCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	log, capture := logger.NewCapture()
	svc, err := NewCardService(f.db.Cards(), f.db.Users(), f.uow, f.cipher, testCardsConfig(), log,
		WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	card, err := svc.GenerateCard(context.Background(), f.holder.Phone)
	require.NoError(t, err)

	number, err := f.cipher.Decrypt(card.EncryptedNumber)
	require.NoError(t, err)
	assert.Len(t, number, domain.CardNumberLength)
	assert.True(t, domain.ValidLuhn(number))
	assert.Equal(t, domain.LastFour(number), card.LastFour)
	assert.Equal(t, f.holder.ID, card.OwnerID)
	assert.Equal(t, domain.CardStatusActive, card.Status)
	assert.True(t, card.Balance.IsZero())
	assert.Equal(t, f.now.AddDate(3, 0, 0), card.ExpiresAt)

	assert.NotContains(t, capture.String(), number)
	assert.Contains(t, capture.String(), card.ID.String())
}

func TestGenerateCardUnknownOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)

	_, err := svc.GenerateCard(context.Background(), "+70000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerateCardRegeneratesOnCollision(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addCard(t, f.holder, numberA, "0")

	src := &scriptedDigits{payloads: []string{numberA, numberB}}
	svc := newCardService(t, f, WithNumberSource(src))

	card, err := svc.GenerateCard(context.Background(), f.other.Phone)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	number, err := f.cipher.Decrypt(card.EncryptedNumber)
	require.NoError(t, err)
	assert.Equal(t, numberB, number)
}

func TestGenerateCardGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addCard(t, f.holder, numberA, "0")

	src := &scriptedDigits{payloads: []string{numberA, numberA, numberA, numberA, numberA, numberB}}
	svc := newCardService(t, f, WithNumberSource(src))

	_, err := svc.GenerateCard(context.Background(), f.holder.Phone)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, testCardsConfig().MaxGenerationAttempts, src.calls)
}

func TestDeleteCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)
	f.addCard(t, f.holder, numberA, "10")
	ctx := context.Background()

	require.NoError(t, svc.DeleteCard(ctx, numberA))
	enc, _ := f.cipher.Encrypt(numberA)
	exists, err := f.db.Cards().ExistsByEncryptedNumber(ctx, enc)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, svc.DeleteCard(ctx, numberA), "deleting a missing card is a no-op")
	assert.ErrorIs(t, svc.DeleteCard(ctx, "12"), domain.ErrInvalidArgument)
}

func TestChangeCardStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current domain.CardStatus
		target  domain.CardStatus
		wantErr error
	}{
		{"block active", domain.CardStatusActive, domain.CardStatusBlocked, nil},
		{"activate blocked", domain.CardStatusBlocked, domain.CardStatusActive, nil},
		{"block blocked", domain.CardStatusBlocked, domain.CardStatusBlocked, nil},
		{"set expired", domain.CardStatusActive, domain.CardStatusExpired, domain.ErrInvalidArgument},
		{"revive expired", domain.CardStatusExpired, domain.CardStatusActive, domain.ErrConflict},
		{"unknown status", domain.CardStatusActive, domain.CardStatus("LOST"), domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			svc := newCardService(t, f)
			card := f.addCard(t, f.holder, numberA, "0")
			ctx := context.Background()
			require.NoError(t, f.db.Cards().UpdateStatus(ctx, card.ID, tt.current))

			err := svc.ChangeCardStatus(ctx, numberA, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.current, f.card(t, numberA).Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, f.card(t, numberA).Status)
		})
	}
}

func TestChangeCardStatusUnknownCard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)

	err := svc.ChangeCardStatus(context.Background(), numberA, domain.CardStatusBlocked)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestBlockFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)
	f.addCard(t, f.holder, numberA, "0")
	f.addCard(t, f.holder, numberB, "0")
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequestBlock(ctx, numberA, f.other.ID), domain.ErrForbidden)
	assert.ErrorIs(t, svc.RequestBlock(ctx, numberC, f.holder.ID), domain.ErrNotFound)

	require.NoError(t, svc.RequestBlock(ctx, numberA, f.holder.ID))
	assert.True(t, f.card(t, numberA).BlockRequested)

	requests, err := svc.ListBlockRequests(ctx, store.Page{Number: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "**** **** **** 7899", requests[0].MaskedNumber)
	assert.Equal(t, f.holder.FullName(), requests[0].OwnerName)

	require.NoError(t, svc.ChangeCardStatus(ctx, numberA, domain.CardStatusBlocked))
	blocked := f.card(t, numberA)
	assert.Equal(t, domain.CardStatusBlocked, blocked.Status)
	assert.False(t, blocked.BlockRequested, "blocking clears the request")

	requests, err = svc.ListBlockRequests(ctx, store.Page{Number: 0, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, requests)

	assert.ErrorIs(t, svc.RequestBlock(ctx, numberA, f.holder.ID), domain.ErrConflict)
}

func TestGetBalance(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)
	f.addCard(t, f.holder, numberA, "12.50")
	ctx := context.Background()

	balance, err := svc.GetBalance(ctx, "4000 0012 3456 7899", f.holder.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.50", balance.StringFixed(2))

	_, err = svc.GetBalance(ctx, numberA, f.other.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.GetBalance(ctx, numberB, f.holder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCardsPagesWithOwners(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)
	f.addCard(t, f.holder, numberA, "1")
	f.addCard(t, f.holder, numberB, "2")
	f.addCard(t, f.other, numberC, "3")
	ctx := context.Background()

	first, err := svc.ListCards(ctx, store.Page{Number: 0, Size: 2})
	require.NoError(t, err)
	second, err := svc.ListCards(ctx, store.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	beyond, err := svc.ListCards(ctx, store.Page{Number: 5, Size: 2})
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 1)
	assert.Empty(t, beyond)

	seen := map[uuid.UUID]bool{}
	for _, info := range append(first, second...) {
		assert.False(t, seen[info.ID], "card listed twice")
		seen[info.ID] = true
		assert.NotEmpty(t, info.OwnerName)
		assert.Contains(t, []string{f.holder.Phone, f.other.Phone}, info.OwnerPhone)
	}

	mine, err := svc.ListMyCards(ctx, f.other.ID, store.Page{Number: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "**** **** **** 0004", mine[0].MaskedNumber)
	assert.Equal(t, "3.00", mine[0].Balance.StringFixed(2))
}

func TestExpireCards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newCardService(t, f)
	f.addCard(t, f.holder, numberA, "0")
	ctx := context.Background()

	n, err := svc.ExpireCards(ctx, f.now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.ExpireCards(ctx, f.now.AddDate(3, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, domain.CardStatusExpired, f.card(t, numberA).Status)
}
