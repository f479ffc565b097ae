// Package users declares and implements persistence for voicefeed accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

// Repository stores accounts keyed by id and by email.
type Repository interface {
	// Create inserts user and fills ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
