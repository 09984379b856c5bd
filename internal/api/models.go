package api

import (
	"time"

	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/shopspring/decimal"
)

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Phone    string `json:"phone"    validate:"required,phone"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshTokenRequest carries a refresh token for rotation or logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and rotation.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// CreateUserRequest defines the payload for registering a card holder.
type CreateUserRequest struct {
	Name       string `json:"name"       validate:"required,personname,max=64"`
	Surname    string `json:"surname"    validate:"required,personname,max=64"`
	Patronymic string `json:"patronymic" validate:"required,personname,max=64"`
	Phone      string `json:"phone"      validate:"required,phone"`
	Password   string `json:"password"   validate:"required,min=8,max=72"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Surname    string            `json:"surname"`
	Patronymic string            `json:"patronymic"`
	Phone      string            `json:"phone"`
	Role       domain.Role       `json:"role"`
	Status     domain.UserStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID.String(),
		Name:       u.Name,
		Surname:    u.Surname,
		Patronymic: u.Patronymic,
		Phone:      u.Phone,
		Role:       u.Role,
		Status:     u.Status,
		CreatedAt:  u.CreatedAt,
	}
}

// UserStatusRequest blocks or unblocks a user.
type UserStatusRequest struct {
	Phone  string            `json:"phone"  validate:"required,phone"`
	Status domain.UserStatus `json:"status" validate:"required,oneof=ACTIVE BLOCKED"`
}

// PhoneRequest names the future owner of a new card.
type PhoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// CardNumberRequest names a card by its plaintext number.
type CardNumberRequest struct {
	CardNumber string `json:"card_number" validate:"required,cardnumber"`
}

// CardStatusRequest sets the status of a card.
type CardStatusRequest struct {
	CardNumber string            `json:"card_number" validate:"required,cardnumber"`
	Status     domain.CardStatus `json:"status"      validate:"required,oneof=ACTIVE BLOCKED"`
}

// TransferRequest moves money between two cards of the caller.
type TransferRequest struct {
	FromCard string          `json:"from_card" validate:"required,cardnumber"`
	ToCard   string          `json:"to_card"   validate:"required,cardnumber"`
	Amount   decimal.Decimal `json:"amount"    validate:"money"`
}

// CardResponse is returned when a card is issued. Only the masked number is
// exposed.
type CardResponse struct {
	ID           string            `json:"id"`
	MaskedNumber string            `json:"masked_number"`
	OwnerID      string            `json:"owner_id"`
	Balance      decimal.Decimal   `json:"balance"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Status       domain.CardStatus `json:"status"`
}

func cardToResponse(c *domain.Card) CardResponse {
	return CardResponse{
		ID:           c.ID.String(),
		MaskedNumber: c.MaskedNumber(),
		OwnerID:      c.OwnerID.String(),
		Balance:      c.Balance,
		CreatedAt:    c.CreatedAt,
		ExpiresAt:    c.ExpiresAt,
		Status:       c.Status,
	}
}

// BalanceResponse reports the balance of one card.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}
