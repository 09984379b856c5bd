package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	user, err := NewUser(" Ivan ", "Petrov", "Sergeevich", "+79001234567", "hash", RoleUser)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "Ivan", user.Name)
	assert.Equal(t, UserStatusActive, user.Status)
	assert.Equal(t, "Petrov Ivan Sergeevich", user.FullName())
	assert.False(t, user.IsBlocked())
	assert.False(t, user.CreatedAt.IsZero())
}

func TestNewUserValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		first   string
		phone   string
		hash    string
		role    Role
		wantErr error
	}{
		{"missing name", "", "+79001234567", "hash", RoleUser, ErrEmptyName},
		{"short phone", "Ivan", "12345", "hash", RoleUser, ErrInvalidPhone},
		{"letters in phone", "Ivan", "+7900abc4567", "hash", RoleUser, ErrInvalidPhone},
		{"missing hash", "Ivan", "+79001234567", "", RoleUser, ErrEmptyHashedPassword},
		{"unknown role", "Ivan", "+79001234567", "hash", "ROOT", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewUser(tt.first, "Petrov", "Sergeevich", tt.phone, tt.hash, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidPhone(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidPhone("+79001234567"))
	assert.True(t, ValidPhone("79001234567"))
	assert.True(t, ValidPhone("123456789012345"))
	assert.False(t, ValidPhone("1234567890123456"))
	assert.False(t, ValidPhone("+7 900 123 45 67"))
}
