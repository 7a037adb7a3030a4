package service

import (
	"context"
	"strings"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
	"library-backend/internal/security"
)

var ErrInvalidCredentials = domain.NewError(domain.KindUnauthenticated, "invalid email or password")

type authService struct {
	users  repository.UserRepository
	tokens security.TokenManager
}

func NewAuthService(users repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, int64, *domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return "", 0, nil, ErrInvalidCredentials
		}
		return "", 0, nil, err
	}

	if !security.CheckPassword(user.PasswordHash, password) {
		return "", 0, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", 0, nil, domain.NewError(domain.KindInactiveUser, "account %s is deactivated", user.Email)
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", 0, nil, err
	}
	return token, expiresAt.Unix(), user, nil
}
