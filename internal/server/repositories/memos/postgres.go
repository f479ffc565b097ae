package memos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/dbx"
	"github.com/dmitrijs2005/voicefeed/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, in models.NewVoiceMemo) (*models.VoiceMemo, error) {
	query := `
		INSERT INTO voice_memos (user_id, title, audio_url, duration, is_published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, likes_count, comments_count
	`
	m := &models.VoiceMemo{
		UserID:      in.UserID,
		Title:       in.Title,
		AudioURL:    in.AudioURL,
		Duration:    in.Duration,
		IsPublished: in.IsPublished,
	}
	err := r.db.QueryRowContext(ctx, query, in.UserID, in.Title, in.AudioURL, in.Duration, in.IsPublished).
		Scan(&m.ID, &m.CreatedAt, &m.LikesCount, &m.CommentsCount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) SelectPublished(ctx context.Context) ([]models.VoiceMemo, error) {
	query := `
		SELECT id, user_id, title, audio_url, duration, created_at, is_published, likes_count, comments_count
		FROM voice_memos
		WHERE is_published = true
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.VoiceMemo
	for rows.Next() {
		var m models.VoiceMemo
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.AudioURL, &m.Duration, &m.CreatedAt,
			&m.IsPublished, &m.LikesCount, &m.CommentsCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) IncrementLikes(ctx context.Context, id string) (int, error) {
	return r.increment(ctx, `
		UPDATE voice_memos SET likes_count = likes_count + 1
		WHERE id = $1
		RETURNING likes_count
	`, id)
}

func (r *PostgresRepository) IncrementComments(ctx context.Context, id string) (int, error) {
	return r.increment(ctx, `
		UPDATE voice_memos SET comments_count = comments_count + 1
		WHERE id = $1
		RETURNING comments_count
	`, id)
}

func (r *PostgresRepository) increment(ctx context.Context, query, id string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
