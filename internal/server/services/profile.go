package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// MaxProjectionBatch caps the number of user ids per ListProjections call.
const MaxProjectionBatch = 500

type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m, validate: validator.New()}
}

// Upsert validates the onboarding form and stores it as userID's profile.
func (s *ProfileService) Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	interests := make([]string, 0, len(in.Interests))
	for _, i := range in.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	in.Interests = interests

	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	p, err := s.repomanager.Profiles(s.db).Upsert(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("error saving profile: %v", err)
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.db).GetByUserID(ctx, userID)
}

// ListProjections returns author projections for the distinct userIDs.
func (s *ProfileService) ListProjections(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error) {
	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) > MaxProjectionBatch {
		return nil, fmt.Errorf("%w: at most %d user ids per request", common.ErrorValidation, MaxProjectionBatch)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	out, err := s.repomanager.Profiles(s.db).SelectProjections(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %v", err)
	}
	return out, nil
}
