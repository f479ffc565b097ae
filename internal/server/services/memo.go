package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// MemoService owns voice_memos. Each successful write is followed by a
// change event; a failed publish is logged and does not fail the write.
type MemoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	broker      changes.Broker
	validate    *validator.Validate
	logger      logging.Logger
}

func NewMemoService(db *sql.DB, m repomanager.RepositoryManager, b changes.Broker, l logging.Logger) *MemoService {
	return &MemoService{
		db:          db,
		repomanager: m,
		broker:      b,
		validate:    validator.New(),
		logger:      logging.ForModule(l, "memos"),
	}
}

// Insert stores a memo authored by userID. The payload's UserID must be
// empty or equal to userID.
func (s *MemoService) Insert(ctx context.Context, userID string, in models.NewVoiceMemo) (*models.VoiceMemo, error) {
	if in.UserID == "" {
		in.UserID = userID
	}
	if in.UserID != userID {
		return nil, fmt.Errorf("%w: memo author must be the caller", common.ErrorForbidden)
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	m, err := s.repomanager.Memos(s.db).Insert(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("error inserting memo: %v", err)
	}

	s.notify(ctx, models.EventInsert, m.ID)
	s.logger.Info(ctx, "memo inserted", "memo_id", m.ID, "user_id", userID)
	return m, nil
}

func (s *MemoService) ListPublished(ctx context.Context) ([]models.VoiceMemo, error) {
	out, err := s.repomanager.Memos(s.db).SelectPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing memos: %v", err)
	}
	return out, nil
}

func (s *MemoService) IncrementLikes(ctx context.Context, id string) (int, error) {
	return s.increment(ctx, id, s.repomanager.Memos(s.db).IncrementLikes)
}

func (s *MemoService) IncrementComments(ctx context.Context, id string) (int, error) {
	return s.increment(ctx, id, s.repomanager.Memos(s.db).IncrementComments)
}

func (s *MemoService) increment(ctx context.Context, id string, fn func(context.Context, string) (int, error)) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("%w: empty memo id", common.ErrorValidation)
	}
	n, err := fn(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("error updating memo: %v", err)
	}
	s.notify(ctx, models.EventUpdate, id)
	return n, nil
}

func (s *MemoService) notify(ctx context.Context, t models.EventType, id string) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, changes.NewEvent(common.TableVoiceMemos, t, id)); err != nil {
		s.logger.Warn(ctx, "change event not published", "memo_id", id, "type", t, "error", err)
	}
}
