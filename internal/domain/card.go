package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// CardNumberLength is the number of digits in a card number.
const CardNumberLength = 16

// Validation errors for cards.
var (
	ErrEmptyCardID          = errors.New("card ID cannot be empty")
	ErrEmptyEncryptedNumber = errors.New("encrypted card number cannot be empty")
	ErrInvalidLastFour      = errors.New("last four digits must be exactly 4 digits")
	ErrEmptyOwnerID         = errors.New("card owner ID cannot be empty")
	ErrNegativeBalance      = errors.New("card balance cannot be negative")
	ErrInvalidExpiry        = errors.New("card expiry must be after creation")
)

var (
	cardNumberPattern = regexp.MustCompile(`^(\d{4}[-\s]?){3}\d{4}$`)
	lastFourPattern   = regexp.MustCompile(`^\d{4}$`)
)

// Card is a snapshot of a stored card. The plaintext number never appears
// here; only its encrypted form and the last four digits are kept.
type Card struct {
	ID              uuid.UUID       `json:"id"`
	EncryptedNumber string          `json:"-"`
	LastFour        string          `json:"last_four"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Balance         decimal.Decimal `json:"balance"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Status          CardStatus      `json:"status"`
	BlockRequested  bool            `json:"block_requested"`
}

// NewCard creates an ACTIVE card with a zero balance that expires
// validityYears after now.
func NewCard(
	encryptedNumber, lastFour string,
	ownerID uuid.UUID,
	now time.Time,
	validityYears int,
) (*Card, error) {
	now = now.UTC()
	card := &Card{
		ID:              uuid.New(),
		EncryptedNumber: encryptedNumber,
		LastFour:        lastFour,
		OwnerID:         ownerID,
		Balance:         decimal.Zero,
		CreatedAt:       now,
		ExpiresAt:       now.AddDate(validityYears, 0, 0),
		Status:          CardStatusActive,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks the invariants of a card record.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCardID
	}
	if c.EncryptedNumber == "" {
		return ErrEmptyEncryptedNumber
	}
	if !lastFourPattern.MatchString(c.LastFour) {
		return ErrInvalidLastFour
	}
	if c.OwnerID == uuid.Nil {
		return ErrEmptyOwnerID
	}
	if c.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if !c.ExpiresAt.After(c.CreatedAt) {
		return ErrInvalidExpiry
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// OwnedBy reports whether userID owns the card.
func (c *Card) OwnedBy(userID uuid.UUID) bool {
	return c.OwnerID == userID
}

// IsActive reports whether the card can take part in transfers.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}

// MaskedNumber renders the card number with all but the last four digits
// hidden.
func (c *Card) MaskedNumber() string {
	return MaskCardNumber(c.LastFour)
}

// Valid reports whether s is a known card status.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

// CheckStatusTransition validates an administrative status change.
// EXPIRED can only be reached through the expiry sweep, and an expired card
// never changes status again.
func CheckStatusTransition(current, target CardStatus) error {
	if !target.Valid() {
		return InvalidArgument("unknown card status")
	}
	if target == CardStatusExpired {
		return InvalidArgument("card status cannot be set to EXPIRED manually")
	}
	if current == CardStatusExpired {
		return Conflict("card is expired")
	}
	return nil
}

// NormalizeCardNumber accepts "dddd dddd dddd dddd", "dddd-dddd-dddd-dddd"
// or 16 plain digits and returns the 16 digits.
func NormalizeCardNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if !cardNumberPattern.MatchString(number) {
		return "", ErrInvalidCardNumber
	}

	var b strings.Builder
	b.Grow(CardNumberLength)
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// MaskCardNumber renders "**** **** **** " followed by lastFour.
func MaskCardNumber(lastFour string) string {
	return "**** **** **** " + lastFour
}

// LastFour returns the last four digits of a normalized card number.
func LastFour(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
