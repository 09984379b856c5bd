package service

import (
	"context"
	"testing"

	"github.com/phrazzld/cards-api/internal/config"
	"github.com/phrazzld/cards-api/internal/domain"
	"github.com/phrazzld/cards-api/internal/platform/logger"
	"github.com/phrazzld/cards-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, f *fixture) UserService {
	t.Helper()
	svc, err := NewUserService(f.db.Users(), auth.NewBcryptVerifier(4), nil)
	require.NoError(t, err)
	return svc
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	log, capture := logger.NewCapture()
	svc, err := NewUserService(f.db.Users(), auth.NewBcryptVerifier(4), log)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, NewUserRequest{
		Name: "Anna", Surname: "Smirnova", Patronymic: "Pavlovna",
		Phone: "+79995550000", Password: "pa55word",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEqual(t, "pa55word", user.HashedPassword)
	assert.NoError(t, auth.NewBcryptVerifier(4).Compare(user.HashedPassword, "pa55word"))

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Phone, stored.Phone)
	assert.NotContains(t, capture.String(), "pa55word")
}

func TestCreateUserErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  NewUserRequest
		want error
	}{
		{
			name: "phone taken",
			req:  NewUserRequest{Name: "A", Surname: "B", Patronymic: "C", Phone: "+79990000001", Password: "x"},
			want: domain.ErrConflict,
		},
		{
			name: "bad phone",
			req:  NewUserRequest{Name: "A", Surname: "B", Patronymic: "C", Phone: "12", Password: "x"},
			want: domain.ErrInvalidArgument,
		},
		{
			name: "missing patronymic",
			req:  NewUserRequest{Name: "A", Surname: "B", Phone: "+79995551111", Password: "x"},
			want: domain.ErrInvalidArgument,
		},
		{
			name: "missing password",
			req:  NewUserRequest{Name: "A", Surname: "B", Patronymic: "C", Phone: "+79995551111"},
			want: domain.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			svc := newUserService(t, f)
			_, err := svc.CreateUser(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChangeUserStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	require.NoError(t, svc.ChangeUserStatus(ctx, f.holder.Phone, domain.UserStatusBlocked))
	user, err := svc.GetUser(ctx, f.holder.ID)
	require.NoError(t, err)
	assert.True(t, user.IsBlocked())

	assert.ErrorIs(t, svc.ChangeUserStatus(ctx, "+70000000000", domain.UserStatusBlocked), domain.ErrNotFound)
	assert.ErrorIs(t, svc.ChangeUserStatus(ctx, f.holder.Phone, domain.UserStatus("GONE")), domain.ErrInvalidArgument)
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	svc := newUserService(t, f)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, config.BootstrapAdminConfig{}))

	admin := config.BootstrapAdminConfig{
		Phone: "+79991112233", Password: "admin-pass",
		Name: "Admin", Surname: "Adminov", Patronymic: "Adminovich",
	}
	require.NoError(t, svc.EnsureAdmin(ctx, admin))
	require.NoError(t, svc.EnsureAdmin(ctx, admin), "second start keeps the existing admin")

	user, err := f.db.Users().GetByPhone(ctx, admin.Phone)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}
