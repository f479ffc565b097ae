package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/dbx"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/lib/pq"
)

// PostgresRepository keeps interests in a text[] column through pq.Array.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error) {
	query := `
		INSERT INTO user_profiles (user_id, display_name, age, photo_url, interests)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    age = EXCLUDED.age,
		    photo_url = EXCLUDED.photo_url,
		    interests = EXCLUDED.interests
		RETURNING id, created_at
	`
	p := &models.Profile{
		UserID:      userID,
		DisplayName: in.DisplayName,
		Age:         in.Age,
		PhotoURL:    in.PhotoURL,
		Interests:   append([]string(nil), in.Interests...),
	}
	err := r.db.QueryRowContext(ctx, query,
		userID, in.DisplayName, in.Age, nullable(in.PhotoURL), pq.Array(in.Interests)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, user_id, display_name, age, photo_url, interests, created_at
		FROM user_profiles
		WHERE user_id = $1
	`
	p := &models.Profile{}
	var photo sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Age,
		&photo, pq.Array(&p.Interests), &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.PhotoURL = photo.String
	return p, nil
}

func (r *PostgresRepository) SelectProjections(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT user_id, display_name, photo_url
		FROM user_profiles
		WHERE user_id = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.ProfileProjection
	for rows.Next() {
		var (
			p     models.ProfileProjection
			photo sql.NullString
		)
		if err := rows.Scan(&p.UserID, &p.DisplayName, &photo); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.PhotoURL = photo.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
