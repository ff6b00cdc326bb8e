//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"marketplace-chat/auth"
	"marketplace-chat/errors"
	"marketplace-chat/repositories"

	"github.com/dgraph-io/badger/v4"
)

type IAuthService interface {
	Login(email, password string) (auth.Session, error)
	Register(email, password string) (auth.Session, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
	log            *slog.Logger
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens, log: log}
}

func (s *AuthService) Register(email, password string) (auth.Session, error) {
	// Business rules are checked before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Email: email, Password: password}); err != nil {
		return auth.Session{}, err
	}

	// Hashing lives here so the repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return auth.Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return auth.Session{}, err
	}
	s.log.Info("Account registered", "user_id", userID)

	return s.issue(userID, []string{"user"})
}

func (s *AuthService) Login(email, password string) (auth.Session, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return auth.Session{}, err
	}

	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			s.log.Error("Unable to read user", "error", err)
		}
		// Same answer for unknown email and wrong password to prevent user enumeration
		return auth.Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return auth.Session{}, errors.ErrInvalidCredentials
	}

	return s.issue(user.ID, user.Roles)
}

func (s *AuthService) issue(userID string, roles []string) (auth.Session, error) {
	token, expiresAt, err := s.tokens.GenerateToken(userID, roles)
	if err != nil {
		return auth.Session{}, err
	}
	return auth.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}
