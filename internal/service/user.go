package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"library-backend/internal/cache"
	"library-backend/internal/domain"
	"library-backend/internal/repository"
	"library-backend/internal/security"
)

// UserUpdate carries optional changes; nil fields are left untouched.
// IsActive and IsAdmin may only be changed by an administrator.
type UserUpdate struct {
	ID       int32
	Email    *string
	FullName *string
	IsActive *bool
	IsAdmin  *bool
}

type userService struct {
	store repository.Store
	cache *cache.Cache
}

func NewUserService(store repository.Store, statsCache *cache.Cache) UserService {
	return &userService{store: store, cache: statsCache}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.NewError(domain.KindInvalidArgument, "invalid email address %q", email)
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	hash, err := security.HashPassword(password)
	if errors.Is(err, security.ErrWeakPassword) {
		return "", domain.WrapError(domain.KindInvalidArgument, err, "password too weak")
	}
	return hash, err
}

func (s *userService) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(cache.TagUsers)
	}
}

func (s *userService) CreateUser(ctx context.Context, user *domain.User, password string) error {
	email, err := normalizeEmail(user.Email)
	if err != nil {
		return err
	}
	user.Email = email
	user.FullName = strings.TrimSpace(user.FullName)
	if user.FullName == "" {
		return domain.NewError(domain.KindInvalidArgument, "full name is required")
	}
	if user.PasswordHash, err = hashPassword(password); err != nil {
		return err
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *userService) GetUser(ctx context.Context, id int32) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *userService) ListUsers(ctx context.Context, filter domain.UserFilter, page domain.Page) ([]domain.User, int32, error) {
	return s.store.Users().List(ctx, filter, page)
}

func (s *userService) UpdateUser(ctx context.Context, caller domain.Caller, update UserUpdate) (*domain.User, error) {
	if !caller.IsAdmin {
		if caller.UserID != update.ID {
			return nil, domain.NewError(domain.KindPermissionDenied, "cannot update another user")
		}
		if update.IsActive != nil || update.IsAdmin != nil {
			return nil, domain.NewError(domain.KindPermissionDenied, "only administrators can change account status")
		}
	}

	var updated *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, update.ID)
		if err != nil {
			return err
		}
		if update.Email != nil {
			if user.Email, err = normalizeEmail(*update.Email); err != nil {
				return err
			}
		}
		if update.FullName != nil {
			name := strings.TrimSpace(*update.FullName)
			if name == "" {
				return domain.NewError(domain.KindInvalidArgument, "full name is required")
			}
			user.FullName = name
		}
		if update.IsActive != nil {
			user.IsActive = *update.IsActive
		}
		if update.IsAdmin != nil {
			user.IsAdmin = *update.IsAdmin
		}
		if err := repos.Users().Update(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int32, oldPassword, newPassword string) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !security.CheckPassword(user.PasswordHash, oldPassword) {
			return domain.NewError(domain.KindUnauthenticated, "current password is incorrect")
		}
		if user.PasswordHash, err = hashPassword(newPassword); err != nil {
			return err
		}
		return repos.Users().Update(ctx, user)
	})
}

func (s *userService) DeleteUser(ctx context.Context, id int32) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}
