package services

import (
	"context"
	"fmt"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Register(ctx context.Context, email, password string) (Token, domain.PublicUser, error)
	Login(ctx context.Context, email, password string) (Token, domain.PublicUser, error)
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenService
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenService) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (Token, domain.PublicUser, error) {
	valReq := auth.RegisterRequest{Email: email, Password: password}

	// Business rules (email format, password complexity) are checked before
	// any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.PublicUser{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository unaware of
	// plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.PublicUser{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(ctx, email, hashedPassword)
	if err != nil {
		return "", domain.PublicUser{}, err // propagates ErrUserAlreadyExists
	}

	token, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return "", domain.PublicUser{}, errors.ErrTokenGeneration
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", domain.PublicUser{}, err
	}
	return Token(token), user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (Token, domain.PublicUser, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Uniform error to prevent user enumeration.
		return "", domain.PublicUser{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.PublicUser{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return "", domain.PublicUser{}, errors.ErrTokenGeneration
	}
	return Token(token), user.Public(), nil
}
