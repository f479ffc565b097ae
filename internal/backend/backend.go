// Package backend declares the capabilities the voicefeed workflow needs
// from its hosted backend: authentication, a relational store, object
// storage and change notifications. Workflow components depend only on
// these interfaces; a single Backend value is built at process start and
// passed to each of them.
package backend

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

// Auth exposes the signed-in user.
type Auth interface {
	// CurrentUser returns the signed-in user or common.ErrUnauthenticated.
	CurrentUser(ctx context.Context) (*models.User, error)
}

// MemoStore is the voice_memos table.
type MemoStore interface {
	InsertMemo(ctx context.Context, m models.NewVoiceMemo) (*models.VoiceMemo, error)
	// SelectPublishedMemos returns memos with is_published = true, newest first.
	SelectPublishedMemos(ctx context.Context) ([]models.VoiceMemo, error)
	IncrementLikes(ctx context.Context, memoID string) error
	IncrementComments(ctx context.Context, memoID string) error
}

// ProfileStore is the user_profiles table.
type ProfileStore interface {
	// UpsertProfile inserts or replaces the caller's profile, keyed on user_id.
	UpsertProfile(ctx context.Context, p models.ProfileInput) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// SelectProfiles returns projections for the given users. Users without
	// a profile are simply absent.
	SelectProfiles(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error)
}

// UploadOptions tune ObjectStore.Upload.
type UploadOptions struct {
	Overwrite   bool
	ContentType string
}

// ObjectStore is bucketed blob storage with public URLs.
type ObjectStore interface {
	// Upload stores data and returns the stored path.
	Upload(ctx context.Context, bucket, key string, data []byte, opts UploadOptions) (string, error)
	PublicURL(ctx context.Context, bucket, key string) (string, error)
	Remove(ctx context.Context, bucket string, keys []string) error
}

// Subscription is a live change-notification registration.
type Subscription interface {
	Unsubscribe()
}

// Notifier delivers row-change events for a table.
type Notifier interface {
	// Subscribe registers fn for events on table that pass filter. fn may be
	// called from another goroutine and must not block for long.
	Subscribe(ctx context.Context, table string, filter models.EventFilter, fn func(models.ChangeEvent)) (Subscription, error)
}

// Backend bundles every capability.
type Backend struct {
	Auth     Auth
	Memos    MemoStore
	Profiles ProfileStore
	Objects  ObjectStore
	Notifier Notifier
}
