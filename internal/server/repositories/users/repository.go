// Package users provides server-side user account persistence.
package users

import (
	"context"

	"github.com/dmitrijs2005/listsync/internal/server/models"
)

// Repository stores user accounts.
type Repository interface {
	// Create inserts a user; common.ErrLoginAlreadyExists when the login is taken.
	Create(ctx context.Context, u *models.User) error

	// GetByLogin returns the user or common.ErrNotFound.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}
