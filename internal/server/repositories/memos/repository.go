// Package memos persists voice memo rows.
package memos

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/models"
)

type Repository interface {
	Insert(ctx context.Context, in models.NewVoiceMemo) (*models.VoiceMemo, error)
	// SelectPublished lists published memos, newest first.
	SelectPublished(ctx context.Context) ([]models.VoiceMemo, error)
	// IncrementLikes and IncrementComments return the new counter value,
	// or common.ErrorNotFound for an unknown memo.
	IncrementLikes(ctx context.Context, id string) (int, error)
	IncrementComments(ctx context.Context, id string) (int, error)
}
