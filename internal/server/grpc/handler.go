package grpc

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/voicefeed/internal/api"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"google.golang.org/grpc/metadata"
)

// watchBuffer is how many change events may queue for a slow stream
// before further events are dropped.
const watchBuffer = 64

var watchableTables = map[string]bool{
	common.TableVoiceMemos:   true,
	common.TableUserProfiles: true,
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {

	return &api.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.UserResponse, error) {

	s.logger.Info(ctx, "Registration request")

	user, err := s.users.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodRegister, err)
	}

	s.logger.Info(ctx, "Registered", "user_id", user.ID)
	return &api.UserResponse{User: *user}, nil

}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenResponse, error) {

	tokens, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodLogin, err)
	}

	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenResponse, error) {

	tokens, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodRefreshToken, err)
	}

	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil

}

func (s *GRPCServer) CurrentUser(ctx context.Context, _ *api.Empty) (*api.UserResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodCurrentUser, err)
	}

	user, err := s.users.CurrentUser(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodCurrentUser, err)
	}
	return &api.UserResponse{User: *user}, nil
}

func (s *GRPCServer) UpsertProfile(ctx context.Context, req *api.UpsertProfileRequest) (*api.ProfileResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodUpsertProfile, err)
	}

	p, err := s.profiles.Upsert(ctx, userID, req.Profile)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodUpsertProfile, err)
	}
	return &api.ProfileResponse{Profile: *p}, nil
}

func (s *GRPCServer) GetProfile(ctx context.Context, req *api.GetProfileRequest) (*api.ProfileResponse, error) {
	userID := req.UserID
	if userID == "" {
		var err error
		if userID, err = userIDFromContext(ctx); err != nil {
			return nil, s.toStatus(ctx, api.FullMethodGetProfile, err)
		}
	}

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodGetProfile, err)
	}
	return &api.ProfileResponse{Profile: *p}, nil
}

func (s *GRPCServer) ListProfiles(ctx context.Context, req *api.ListProfilesRequest) (*api.ListProfilesResponse, error) {
	out, err := s.profiles.ListProjections(ctx, req.UserIDs)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodListProfiles, err)
	}
	return &api.ListProfilesResponse{Profiles: out}, nil
}

func (s *GRPCServer) CreateUpload(ctx context.Context, req *api.CreateUploadRequest) (*api.CreateUploadResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodCreateUpload, err)
	}

	t, err := s.storage.CreateUpload(ctx, userID, req.Bucket, req.Key, req.ContentType, req.Overwrite)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodCreateUpload, err)
	}
	return &api.CreateUploadResponse{
		Key:       t.Key,
		URL:       t.URL,
		Method:    t.Method,
		Headers:   t.Headers,
		ExpiresAt: t.ExpiresAt,
	}, nil
}

func (s *GRPCServer) PutObject(ctx context.Context, req *api.PutObjectRequest) (*api.PutObjectResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodPutObject, err)
	}

	path, err := s.storage.Put(ctx, userID, req.Bucket, req.Key, req.Data, req.ContentType, req.Overwrite)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodPutObject, err)
	}
	return &api.PutObjectResponse{Path: path}, nil
}

func (s *GRPCServer) GetPublicURL(ctx context.Context, req *api.GetPublicURLRequest) (*api.GetPublicURLResponse, error) {
	u, err := s.storage.PublicURL(req.Bucket, req.Key)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodGetPublicURL, err)
	}
	return &api.GetPublicURLResponse{URL: u}, nil
}

func (s *GRPCServer) RemoveObjects(ctx context.Context, req *api.RemoveObjectsRequest) (*api.Empty, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodRemoveObjects, err)
	}

	if err := s.storage.Remove(ctx, userID, req.Bucket, req.Keys); err != nil {
		return nil, s.toStatus(ctx, api.FullMethodRemoveObjects, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) InsertMemo(ctx context.Context, req *api.InsertMemoRequest) (*api.MemoResponse, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodInsertMemo, err)
	}

	m, err := s.memos.Insert(ctx, userID, req.Memo)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodInsertMemo, err)
	}
	s.logger.Info(ctx, "memo inserted", "memo_id", m.ID, "user_id", userID)
	return &api.MemoResponse{Memo: *m}, nil
}

func (s *GRPCServer) ListPublishedMemos(ctx context.Context, _ *api.ListPublishedMemosRequest) (*api.ListMemosResponse, error) {
	out, err := s.memos.ListPublished(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodListPublishedMemos, err)
	}
	return &api.ListMemosResponse{Memos: out}, nil
}

func (s *GRPCServer) IncrementLikes(ctx context.Context, req *api.IncrementRequest) (*api.CounterResponse, error) {
	n, err := s.memos.IncrementLikes(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodIncrementLikes, err)
	}
	return &api.CounterResponse{Value: n}, nil
}

func (s *GRPCServer) IncrementComments(ctx context.Context, req *api.IncrementRequest) (*api.CounterResponse, error) {
	n, err := s.memos.IncrementComments(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, api.FullMethodIncrementComments, err)
	}
	return &api.CounterResponse{Value: n}, nil
}

// WatchChanges streams change events for one table until the client goes
// away. Headers are sent once the subscription is live, so a client that
// waits for them cannot miss an event published afterwards.
func (s *GRPCServer) WatchChanges(req *api.WatchChangesRequest, stream api.ChangeStream) error {
	ctx := stream.Context()

	if !watchableTables[req.Table] {
		return s.toStatus(ctx, api.FullMethodWatchChanges, fmt.Errorf("%w: unknown table %q", common.ErrorValidation, req.Table))
	}

	events := make(chan models.ChangeEvent, watchBuffer)
	sub, err := s.broker.Subscribe(req.Table, req.Events, func(ev models.ChangeEvent) {
		select {
		case events <- ev:
		default:
			s.logger.Warn(ctx, "change stream is slow, dropping event", "table", ev.Table, "event_id", ev.ID)
		}
	})
	if err != nil {
		return s.toStatus(ctx, api.FullMethodWatchChanges, err)
	}
	defer sub.Unsubscribe()

	if err := stream.SendHeader(metadata.Pairs(api.SubscribedHeader, req.Table)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if err := stream.Send(&ev); err != nil {
				return err
			}
			s.metrics.ChangeEvents.WithLabelValues(ev.Table, "grpc").Inc()
		}
	}
}
