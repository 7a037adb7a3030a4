package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domain"
	"library-backend/internal/security"
	"library-backend/internal/service"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUserService(t *testing.T) {
	ctx := context.Background()

	t.Run("Create Normalizes And Hashes", func(t *testing.T) {
		f := newFixture(t)
		u := &domain.User{Email: "  Ada@Example.COM ", FullName: "Ada Lovelace", IsActive: true}
		require.NoError(t, f.users.CreateUser(ctx, u, "analytical"))
		assert.Equal(t, "ada@example.com", u.Email)
		assert.NotEqual(t, "analytical", u.PasswordHash)
		assert.True(t, security.CheckPassword(u.PasswordHash, "analytical"))

		err := f.users.CreateUser(ctx, &domain.User{Email: "ada@example.com", FullName: "Other"}, "password123")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Create Validation", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.users.CreateUser(ctx, &domain.User{Email: "not-an-email", FullName: "X"}, "password123"), domain.ErrInvalidArgument)
		assert.ErrorIs(t, f.users.CreateUser(ctx, &domain.User{Email: "x@example.com", FullName: "X"}, "short"), domain.ErrInvalidArgument)
	})

	t.Run("Self Update", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, true)
		self := domain.Caller{UserID: u.ID}

		updated, err := f.users.UpdateUser(ctx, self, service.UserUpdate{ID: u.ID, FullName: strPtr("New Name")})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.FullName)

		_, err = f.users.UpdateUser(ctx, self, service.UserUpdate{ID: u.ID, IsAdmin: boolPtr(true)})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)

		other := f.user(t, true)
		_, err = f.users.UpdateUser(ctx, self, service.UserUpdate{ID: other.ID, FullName: strPtr("Hijack")})
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("Admin Deactivates", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, true)
		updated, err := f.users.UpdateUser(ctx, domain.Caller{UserID: 99, IsAdmin: true}, service.UserUpdate{ID: u.ID, IsActive: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		_, err = f.loans.CreateLoan(ctx, u.ID, f.book(t, 1).ID, 0)
		assert.ErrorIs(t, err, domain.ErrInactiveUser)
	})

	t.Run("Change Password", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, true)
		assert.ErrorIs(t, f.users.ChangePassword(ctx, u.ID, "wrong-password", "newpassword1"), domain.ErrUnauthenticated)
		require.NoError(t, f.users.ChangePassword(ctx, u.ID, "password123", "newpassword1"))

		got, err := f.users.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, security.CheckPassword(got.PasswordHash, "newpassword1"))
	})

	t.Run("Delete With Loan History", func(t *testing.T) {
		f := newFixture(t)
		u := f.user(t, true)
		loan, err := f.loans.CreateLoan(ctx, u.ID, f.book(t, 1).ID, 0)
		require.NoError(t, err)
		_, err = f.loans.ReturnLoan(ctx, loan.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, f.users.DeleteUser(ctx, u.ID), domain.ErrConflict)
		fresh := f.user(t, true)
		require.NoError(t, f.users.DeleteUser(ctx, fresh.ID))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	hash, err := security.HashPassword("password123")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(&domain.User{ID: 7, Email: "ada@example.com", PasswordHash: hash, IsActive: true, IsAdmin: true}, nil)
		svc := service.NewAuthService(users, tokens)

		token, expiresAt, user, err := svc.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, int32(7), user.ID)
		assert.Greater(t, expiresAt, time.Now().Unix())

		claims, err := tokens.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int32(7), claims.UserID)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", ctx, mock.Anything).Return(&domain.User{ID: 7, PasswordHash: hash, IsActive: true}, nil)
		_, _, _, err := service.NewAuthService(users, tokens).Login(ctx, "ada@example.com", "nope")
		assert.Equal(t, service.ErrInvalidCredentials, err)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", ctx, mock.Anything).Return(nil, domain.NewError(domain.KindNotFound, "no such user"))
		_, _, _, err := service.NewAuthService(users, tokens).Login(ctx, "ghost@example.com", "password123")
		assert.Equal(t, service.ErrInvalidCredentials, err)
	})

	t.Run("Inactive User", func(t *testing.T) {
		users := new(MockUserRepo)
		users.On("GetByEmail", ctx, mock.Anything).Return(&domain.User{ID: 7, PasswordHash: hash}, nil)
		_, _, _, err := service.NewAuthService(users, tokens).Login(ctx, "ada@example.com", "password123")
		assert.ErrorIs(t, err, domain.ErrInactiveUser)
	})
}
