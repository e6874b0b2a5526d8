// Package services holds the server's business logic between the HTTP layer
// and the repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/listsync/internal/common"
	"github.com/dmitrijs2005/listsync/internal/server/auth"
	"github.com/dmitrijs2005/listsync/internal/server/models"
	"github.com/dmitrijs2005/listsync/internal/server/repositories/users"
)

// UserService registers accounts and issues access tokens.
type UserService struct {
	repo          users.Repository
	secretKey     []byte
	tokenValidity time.Duration
}

func NewUserService(repo users.Repository, secretKey string, tokenValidity time.Duration) *UserService {
	return &UserService{repo: repo, secretKey: []byte(secretKey), tokenValidity: tokenValidity}
}

// Register creates an account and returns an access token for it.
func (s *UserService) Register(ctx context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", common.ErrInvalidLoginPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Login:        login,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return "", err
	}
	return auth.GenerateToken(u.ID, s.secretKey, s.tokenValidity)
}

// Login verifies the credentials and returns an access token.
// Unknown logins and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, login, password string) (string, error) {
	u, err := s.repo.GetByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, common.ErrNotFound) {
		return "", common.ErrInvalidLoginPassword
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", common.ErrInvalidLoginPassword
	}
	return auth.GenerateToken(u.ID, s.secretKey, s.tokenValidity)
}
