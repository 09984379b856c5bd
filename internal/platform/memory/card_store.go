package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/shopspring/decimal"
)

// CardStore implements store.CardStore in memory.
type CardStore struct {
	handle
}

var _ store.CardStore = (*CardStore)(nil)

// Create implements store.CardStore.Create.
func (s *CardStore) Create(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	return s.write(func() error {
		if _, ok := s.db.users[card.OwnerID]; !ok {
			return fmt.Errorf("%w: owner %s does not exist", store.ErrInvalidEntity, card.OwnerID)
		}
		if _, ok := s.db.cards[card.ID]; ok {
			return fmt.Errorf("%w: card id", store.ErrDuplicate)
		}
		for _, existing := range s.db.cards {
			if existing.EncryptedNumber == card.EncryptedNumber {
				return store.ErrCardNumberExists
			}
		}
		c := *card
		c.Balance = c.Balance.Round(domain.MoneyScale)
		s.db.cards[c.ID] = c
		return nil
	})
}

// GetByID implements store.CardStore.GetByID.
func (s *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	var (
		card domain.Card
		ok   bool
	)
	s.read(func() { card, ok = s.db.cards[id] })
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return &card, nil
}

// GetByEncryptedNumber implements store.CardStore.GetByEncryptedNumber.
func (s *CardStore) GetByEncryptedNumber(ctx context.Context, encryptedNumber string) (*domain.Card, error) {
	var (
		card domain.Card
		ok   bool
	)
	s.read(func() { card, ok = s.findByNumber(encryptedNumber) })
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return &card, nil
}

// findByNumber must be called with mu held.
func (s *CardStore) findByNumber(encryptedNumber string) (domain.Card, bool) {
	for _, c := range s.db.cards {
		if c.EncryptedNumber == encryptedNumber {
			return c, true
		}
	}
	return domain.Card{}, false
}

// ExistsByEncryptedNumber implements store.CardStore.ExistsByEncryptedNumber.
func (s *CardStore) ExistsByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var ok bool
	s.read(func() { _, ok = s.findByNumber(encryptedNumber) })
	return ok, nil
}

// List implements store.CardStore.List.
func (s *CardStore) List(ctx context.Context, filter store.CardFilter, page store.Page) ([]*domain.Card, error) {
	var matched []domain.Card
	s.read(func() {
		for _, c := range s.db.cards {
			if filter.BlockRequested != nil && c.BlockRequested != *filter.BlockRequested {
				continue
			}
			if filter.OwnerID != nil && c.OwnerID != *filter.OwnerID {
				continue
			}
			matched = append(matched, c)
		}
	})

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	start := page.Offset()
	if start >= len(matched) || page.Size <= 0 {
		return []*domain.Card{}, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]*domain.Card, 0, end-start)
	for i := start; i < end; i++ {
		c := matched[i]
		result = append(result, &c)
	}
	return result, nil
}

// GuardedDebit implements store.CardStore.GuardedDebit. The balance check and
// the subtraction happen under one lock, like the single UPDATE in Postgres.
func (s *CardStore) GuardedDebit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error) {
	var rows int64
	err := s.write(func() error {
		c, ok := s.db.cards[id]
		if !ok || c.Balance.LessThan(amount) {
			return nil
		}
		c.Balance = c.Balance.Sub(amount)
		s.db.cards[id] = c
		rows = 1
		return nil
	})
	return rows, err
}

// Credit implements store.CardStore.Credit.
func (s *CardStore) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	return s.update(id, func(c *domain.Card) { c.Balance = c.Balance.Add(amount) })
}

// UpdateStatus implements store.CardStore.UpdateStatus.
func (s *CardStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CardStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidStatus)
	}
	return s.update(id, func(c *domain.Card) { c.Status = status })
}

// SetBlockRequested implements store.CardStore.SetBlockRequested.
func (s *CardStore) SetBlockRequested(ctx context.Context, id uuid.UUID, requested bool) error {
	return s.update(id, func(c *domain.Card) { c.BlockRequested = requested })
}

func (s *CardStore) update(id uuid.UUID, mutate func(c *domain.Card)) error {
	return s.write(func() error {
		c, ok := s.db.cards[id]
		if !ok {
			return store.ErrCardNotFound
		}
		mutate(&c)
		s.db.cards[id] = c
		return nil
	})
}

// ExpireDue implements store.CardStore.ExpireDue.
func (s *CardStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.write(func() error {
		for id, c := range s.db.cards {
			if c.Status != domain.CardStatusExpired && !c.ExpiresAt.After(now) {
				c.Status = domain.CardStatusExpired
				s.db.cards[id] = c
				n++
			}
		}
		return nil
	})
	return n, err
}

// DeleteByEncryptedNumber implements store.CardStore.DeleteByEncryptedNumber.
func (s *CardStore) DeleteByEncryptedNumber(ctx context.Context, encryptedNumber string) (bool, error) {
	var deleted bool
	err := s.write(func() error {
		if c, ok := s.findByNumber(encryptedNumber); ok {
			delete(s.db.cards, c.ID)
			deleted = true
		}
		return nil
	})
	return deleted, err
}

// WithTx implements store.CardStore.WithTx. The in-memory store has no SQL
// transactions; units of work are handled by UnitOfWork.
func (s *CardStore) WithTx(_ *sql.Tx) store.CardStore {
	return s
}
