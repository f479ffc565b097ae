// Package profiles persists onboarding profiles in user_profiles.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

// Repository stores at most one profile per user.
type Repository interface {
	// Upsert creates or replaces the profile of userID.
	Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
	// SelectProjections returns the feed projection of every listed user
	// that has a profile. Missing users are simply absent.
	SelectProjections(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error)
}
