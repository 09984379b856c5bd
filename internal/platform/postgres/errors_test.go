package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/cards-api/internal/platform/postgres"
	"github.com/phrazzld/cards-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "test_table",
		ColumnName:     "test_column",
		ConstraintName: constraint,
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		want    []error
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "no rows", err: sql.ErrNoRows, want: []error{store.ErrNotFound}},
		{
			name: "phone unique",
			err:  newPgError("23505", "users_phone_key"),
			want: []error{store.ErrPhoneExists, store.ErrDuplicate},
		},
		{
			name: "card number unique",
			err:  newPgError("23505", "cards_encrypted_number_key"),
			want: []error{store.ErrCardNumberExists, store.ErrDuplicate},
		},
		{
			name: "token unique",
			err:  newPgError("23505", "refresh_tokens_token_key"),
			want: []error{store.ErrTokenExists, store.ErrDuplicate},
		},
		{
			name: "other unique",
			err:  newPgError("23505", "cards_pkey"),
			want: []error{store.ErrDuplicate},
		},
		{
			name: "wrapped foreign key",
			err:  fmt.Errorf("insert: %w", newPgError("23503", "cards_owner_id_fkey")),
			want: []error{store.ErrInvalidEntity},
		},
		{name: "check", err: newPgError("23514", "cards_balance_check"), want: []error{store.ErrInvalidEntity}},
		{name: "not null", err: newPgError("23502", ""), want: []error{store.ErrInvalidEntity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := postgres.MapError(tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			for _, want := range tt.want {
				assert.ErrorIs(t, got, want)
			}
		})
	}

	generic := errors.New("connection reset")
	assert.Same(t, generic, postgres.MapError(generic))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.False(t, postgres.IsUniqueViolation(nil))
	assert.False(t, postgres.IsUniqueViolation(errors.New("generic error")))
	assert.True(t, postgres.IsUniqueViolation(newPgError("23505", "x")))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503", "x")))
}
