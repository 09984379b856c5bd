package memory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/store"
)

// UserStore implements store.UserStore in memory.
type UserStore struct {
	handle
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	return s.write(func() error {
		if _, ok := s.db.users[user.ID]; ok {
			return fmt.Errorf("%w: user id", store.ErrDuplicate)
		}
		if _, ok := s.findByPhone(user.Phone); ok {
			return store.ErrPhoneExists
		}
		s.db.users[user.ID] = *user
		return nil
	})
}

// findByPhone must be called with mu held.
func (s *UserStore) findByPhone(phone string) (domain.User, bool) {
	for _, u := range s.db.users {
		if u.Phone == phone {
			return u, true
		}
	}
	return domain.User{}, false
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	s.read(func() { user, ok = s.db.users[id] })
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

// GetByPhone implements store.UserStore.GetByPhone.
func (s *UserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var (
		user domain.User
		ok   bool
	)
	s.read(func() { user, ok = s.findByPhone(phone) })
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

// ExistsByPhone implements store.UserStore.ExistsByPhone.
func (s *UserStore) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var ok bool
	s.read(func() { _, ok = s.findByPhone(phone) })
	return ok, nil
}

// UpdateStatus implements store.UserStore.UpdateStatus.
func (s *UserStore) UpdateStatus(ctx context.Context, phone string, status domain.UserStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidStatus)
	}
	return s.write(func() error {
		u, ok := s.findByPhone(phone)
		if !ok {
			return store.ErrUserNotFound
		}
		u.Status = status
		s.db.users[u.ID] = u
		return nil
	})
}

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(_ *sql.Tx) store.UserStore {
	return s
}
