package remote

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/api"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeAPI is a minimal voicefeed server. It accepts the access token
// named in valid and answers "token expired" for expired.
type fakeAPI struct {
	api.UnimplementedVoiceFeedServer

	mu        sync.Mutex
	valid     string
	expired   string
	refresh   string
	refreshes int
	uploadURL string
	puts      []*api.PutObjectRequest
	likes     []string
	events    chan models.ChangeEvent
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		valid:   "access-1",
		refresh: "refresh-1",
		events:  make(chan models.ChangeEvent, 4),
	}
}

func (f *fakeAPI) check(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(common.AccessTokenHeaderName)
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch vals[0] {
	case f.valid:
		return nil
	case f.expired:
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	default:
		return status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}
}

func (f *fakeAPI) Ping(context.Context, *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

func (f *fakeAPI) Register(_ context.Context, r *api.RegisterRequest) (*api.UserResponse, error) {
	if r.Email == "taken@x.io" {
		return nil, status.Error(codes.AlreadyExists, "email taken")
	}
	return &api.UserResponse{User: models.User{ID: "u1", Email: r.Email}}, nil
}

func (f *fakeAPI) Login(_ context.Context, r *api.LoginRequest) (*api.TokenResponse, error) {
	if r.Password != "secret" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.TokenResponse{AccessToken: f.valid, RefreshToken: f.refresh}, nil
}

func (f *fakeAPI) RefreshToken(_ context.Context, r *api.RefreshTokenRequest) (*api.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.RefreshToken != f.refresh {
		return nil, status.Error(codes.Unauthenticated, common.ErrRefreshTokenExpired.Error())
	}
	f.refreshes++
	f.valid, f.refresh = "access-2", "refresh-2"
	return &api.TokenResponse{AccessToken: f.valid, RefreshToken: f.refresh}, nil
}

func (f *fakeAPI) CurrentUser(ctx context.Context, _ *api.Empty) (*api.UserResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return &api.UserResponse{User: models.User{ID: "u1", Email: "a@x.io"}}, nil
}

func (f *fakeAPI) IncrementLikes(ctx context.Context, r *api.IncrementRequest) (*api.CounterResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	if r.ID == "missing" {
		return nil, status.Error(codes.NotFound, "memo not found")
	}
	f.mu.Lock()
	f.likes = append(f.likes, r.ID)
	f.mu.Unlock()
	return &api.CounterResponse{Value: 1}, nil
}

func (f *fakeAPI) ListPublishedMemos(ctx context.Context, _ *api.ListPublishedMemosRequest) (*api.ListMemosResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return &api.ListMemosResponse{Memos: []models.VoiceMemo{{ID: "m1", Title: "hello", IsPublished: true}}}, nil
}

func (f *fakeAPI) CreateUpload(ctx context.Context, r *api.CreateUploadRequest) (*api.CreateUploadResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	h := map[string][]string{"Content-Type": {r.ContentType}}
	if !r.Overwrite {
		h["If-None-Match"] = []string{"*"}
	}
	return &api.CreateUploadResponse{
		Key:       r.Key,
		URL:       f.uploadURL + "/" + r.Bucket + "/" + r.Key,
		Method:    "PUT",
		Headers:   h,
		ExpiresAt: time.Now().Add(time.Minute),
	}, nil
}

func (f *fakeAPI) PutObject(ctx context.Context, r *api.PutObjectRequest) (*api.PutObjectResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.puts = append(f.puts, r)
	f.mu.Unlock()
	return &api.PutObjectResponse{Path: r.Key}, nil
}

func (f *fakeAPI) GetPublicURL(ctx context.Context, r *api.GetPublicURLRequest) (*api.GetPublicURLResponse, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return &api.GetPublicURLResponse{URL: "https://cdn.test/" + r.Bucket + "/" + r.Key}, nil
}

func (f *fakeAPI) WatchChanges(r *api.WatchChangesRequest, stream api.ChangeStream) error {
	if err := f.check(stream.Context()); err != nil {
		return err
	}
	if r.Table != common.TableVoiceMemos {
		return status.Error(codes.InvalidArgument, "unknown table")
	}
	if err := stream.SendHeader(metadata.Pairs(api.SubscribedHeader, r.Table)); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev := <-f.events:
			if !r.Events.Matches(ev.Type) {
				continue
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}

// startClient serves f over bufconn and returns a client with opts
// pointed at it.
func startClient(t *testing.T, f *fakeAPI, opts Options) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	api.RegisterVoiceFeedServer(srv, f)
	go func() { _ = srv.Serve(lis) }()

	opts.Address = "passthrough:///bufnet"
	c, err := New(opts, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = c.Close()
		srv.Stop()
	})
	return c
}
