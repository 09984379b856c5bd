package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/store"
)

// PasswordHasher turns a plaintext password into a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// NewUserRequest carries the data needed to register a card holder.
type NewUserRequest struct {
	Name       string
	Surname    string
	Patronymic string
	Phone      string
	Password   string
}

// UserService provides user-related operations.
type UserService interface {
	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// CreateUser registers an ACTIVE card holder with role USER.
	CreateUser(ctx context.Context, req NewUserRequest) (*domain.User, error)

	// ChangeUserStatus blocks or unblocks the user with phone.
	ChangeUserStatus(ctx context.Context, phone string, status domain.UserStatus) error

	// EnsureAdmin creates the configured administrator unless a user with the
	// same phone already exists.
	EnsureAdmin(ctx context.Context, admin config.BootstrapAdminConfig) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    PasswordHasher
	logger    *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userStore store.UserStore, hasher PasswordHasher, logger *slog.Logger) (UserService, error) {
	if userStore == nil {
		return nil, errors.New("user service: user store cannot be nil")
	}
	if hasher == nil {
		return nil, errors.New("user service: password hasher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, NewServiceError("user", "get", "failed to load user", err)
	}
	return user, nil
}

// CreateUser implements UserService.CreateUser.
func (s *UserServiceImpl) CreateUser(ctx context.Context, req NewUserRequest) (*domain.User, error) {
	return s.create(ctx, req, domain.RoleUser)
}

func (s *UserServiceImpl) create(ctx context.Context, req NewUserRequest, role domain.Role) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.ValidPhone(req.Phone) {
		return nil, domain.InvalidArgument("invalid phone number")
	}
	if req.Password == "" {
		return nil, domain.InvalidArgument("password is required")
	}

	exists, err := s.userStore.ExistsByPhone(ctx, req.Phone)
	if err != nil {
		return nil, NewServiceError("user", "create", "failed to check phone", err)
	}
	if exists {
		return nil, domain.Conflict("phone number already registered")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewServiceError("user", "create", "failed to hash password", err)
	}

	user, err := domain.NewUser(req.Name, req.Surname, req.Patronymic, req.Phone, hash, role)
	if err != nil {
		return nil, domain.InvalidArgument(err.Error())
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrPhoneExists) {
			return nil, domain.Conflict("phone number already registered")
		}
		return nil, NewServiceError("user", "create", "failed to save user", err)
	}

	log.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(role)))
	return user, nil
}

// ChangeUserStatus implements UserService.ChangeUserStatus.
func (s *UserServiceImpl) ChangeUserStatus(ctx context.Context, phone string, status domain.UserStatus) error {
	if !status.Valid() {
		return domain.InvalidArgument("unknown user status")
	}
	if err := s.userStore.UpdateStatus(ctx, phone, status); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domain.NotFound("user not found")
		}
		return NewServiceError("user", "change_status", "failed to update status", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("user status changed",
		slog.String("status", string(status)))
	return nil
}

// EnsureAdmin implements UserService.EnsureAdmin. An empty phone disables
// the bootstrap.
func (s *UserServiceImpl) EnsureAdmin(ctx context.Context, admin config.BootstrapAdminConfig) error {
	if admin.Phone == "" {
		return nil
	}
	_, err := s.create(ctx, NewUserRequest{
		Name:       admin.Name,
		Surname:    admin.Surname,
		Patronymic: admin.Patronymic,
		Phone:      admin.Phone,
		Password:   admin.Password,
	}, domain.RoleAdmin)
	if errors.Is(err, domain.ErrConflict) {
		logger.FromContextOrDefault(ctx, s.logger).Debug("bootstrap administrator already present")
		return nil
	}
	return err
}
