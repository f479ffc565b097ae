package api

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/voicefeed/internal/models"
	"google.golang.org/grpc"
)

// VoiceFeedClient is the client API for voicefeed.v1.VoiceFeed. Every call
// is sent with the JSON content-subtype.
type VoiceFeedClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*UserResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error)
	CurrentUser(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UserResponse, error)
	UpsertProfile(ctx context.Context, in *UpsertProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error)
	GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error)
	ListProfiles(ctx context.Context, in *ListProfilesRequest, opts ...grpc.CallOption) (*ListProfilesResponse, error)
	CreateUpload(ctx context.Context, in *CreateUploadRequest, opts ...grpc.CallOption) (*CreateUploadResponse, error)
	PutObject(ctx context.Context, in *PutObjectRequest, opts ...grpc.CallOption) (*PutObjectResponse, error)
	GetPublicURL(ctx context.Context, in *GetPublicURLRequest, opts ...grpc.CallOption) (*GetPublicURLResponse, error)
	RemoveObjects(ctx context.Context, in *RemoveObjectsRequest, opts ...grpc.CallOption) (*Empty, error)
	InsertMemo(ctx context.Context, in *InsertMemoRequest, opts ...grpc.CallOption) (*MemoResponse, error)
	ListPublishedMemos(ctx context.Context, in *ListPublishedMemosRequest, opts ...grpc.CallOption) (*ListMemosResponse, error)
	IncrementLikes(ctx context.Context, in *IncrementRequest, opts ...grpc.CallOption) (*CounterResponse, error)
	IncrementComments(ctx context.Context, in *IncrementRequest, opts ...grpc.CallOption) (*CounterResponse, error)
	WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[models.ChangeEvent], error)
}

type voiceFeedClient struct {
	cc grpc.ClientConnInterface
}

func NewVoiceFeedClient(cc grpc.ClientConnInterface) VoiceFeedClient {
	return &voiceFeedClient{cc: cc}
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *voiceFeedClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, FullMethodPing, in, opts)
}

func (c *voiceFeedClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, FullMethodRegister, in, opts)
}

func (c *voiceFeedClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, FullMethodLogin, in, opts)
}

func (c *voiceFeedClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, FullMethodRefreshToken, in, opts)
}

func (c *voiceFeedClient) CurrentUser(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, FullMethodCurrentUser, in, opts)
}

func (c *voiceFeedClient) UpsertProfile(ctx context.Context, in *UpsertProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, FullMethodUpsertProfile, in, opts)
}

func (c *voiceFeedClient) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, FullMethodGetProfile, in, opts)
}

func (c *voiceFeedClient) ListProfiles(ctx context.Context, in *ListProfilesRequest, opts ...grpc.CallOption) (*ListProfilesResponse, error) {
	return invoke[ListProfilesResponse](ctx, c.cc, FullMethodListProfiles, in, opts)
}

func (c *voiceFeedClient) CreateUpload(ctx context.Context, in *CreateUploadRequest, opts ...grpc.CallOption) (*CreateUploadResponse, error) {
	return invoke[CreateUploadResponse](ctx, c.cc, FullMethodCreateUpload, in, opts)
}

func (c *voiceFeedClient) PutObject(ctx context.Context, in *PutObjectRequest, opts ...grpc.CallOption) (*PutObjectResponse, error) {
	return invoke[PutObjectResponse](ctx, c.cc, FullMethodPutObject, in, opts)
}

func (c *voiceFeedClient) GetPublicURL(ctx context.Context, in *GetPublicURLRequest, opts ...grpc.CallOption) (*GetPublicURLResponse, error) {
	return invoke[GetPublicURLResponse](ctx, c.cc, FullMethodGetPublicURL, in, opts)
}

func (c *voiceFeedClient) RemoveObjects(ctx context.Context, in *RemoveObjectsRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, FullMethodRemoveObjects, in, opts)
}

func (c *voiceFeedClient) InsertMemo(ctx context.Context, in *InsertMemoRequest, opts ...grpc.CallOption) (*MemoResponse, error) {
	return invoke[MemoResponse](ctx, c.cc, FullMethodInsertMemo, in, opts)
}

func (c *voiceFeedClient) ListPublishedMemos(ctx context.Context, in *ListPublishedMemosRequest, opts ...grpc.CallOption) (*ListMemosResponse, error) {
	return invoke[ListMemosResponse](ctx, c.cc, FullMethodListPublishedMemos, in, opts)
}

func (c *voiceFeedClient) IncrementLikes(ctx context.Context, in *IncrementRequest, opts ...grpc.CallOption) (*CounterResponse, error) {
	return invoke[CounterResponse](ctx, c.cc, FullMethodIncrementLikes, in, opts)
}

func (c *voiceFeedClient) IncrementComments(ctx context.Context, in *IncrementRequest, opts ...grpc.CallOption) (*CounterResponse, error) {
	return invoke[CounterResponse](ctx, c.cc, FullMethodIncrementComments, in, opts)
}

func (c *voiceFeedClient) WatchChanges(ctx context.Context, in *WatchChangesRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[models.ChangeEvent], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethodWatchChanges, withJSON(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchChangesRequest, models.ChangeEvent]{ClientStream: stream}
	// io.EOF means the server already ended the stream; Recv reports why.
	if err := x.ClientStream.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
