package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

// Validation errors for users.
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyName           = errors.New("name, surname and patronymic are required")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// User is an account holder or administrator.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Surname        string     `json:"surname"`
	Patronymic     string     `json:"patronymic"`
	Phone          string     `json:"phone"`
	HashedPassword string     `json:"-"`
	Role           Role       `json:"role"`
	Status         UserStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewUser creates an ACTIVE user with the given role. The caller hashes the
// password beforehand.
func NewUser(name, surname, patronymic, phone, hashedPassword string, role Role) (*User, error) {
	user := &User{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(name),
		Surname:        strings.TrimSpace(surname),
		Patronymic:     strings.TrimSpace(patronymic),
		Phone:          phone,
		HashedPassword: hashedPassword,
		Role:           role,
		Status:         UserStatusActive,
		CreatedAt:      time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks the invariants of a user record.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Name == "" || u.Surname == "" || u.Patronymic == "" {
		return ErrEmptyName
	}
	if !ValidPhone(u.Phone) {
		return ErrInvalidPhone
	}
	if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if !u.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// FullName renders "Surname Name Patronymic".
func (u *User) FullName() string {
	return u.Surname + " " + u.Name + " " + u.Patronymic
}

// IsBlocked reports whether the account is blocked.
func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Valid reports whether s is a known user status.
func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusBlocked
}

// ValidPhone reports whether phone has 10 to 15 digits with an optional
// leading plus sign.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
