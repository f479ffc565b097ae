package api

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "voicefeed.v1.VoiceFeed"

// Full method names, as seen by interceptors.
const (
	FullMethodPing               = "/" + ServiceName + "/Ping"
	FullMethodRegister           = "/" + ServiceName + "/Register"
	FullMethodLogin              = "/" + ServiceName + "/Login"
	FullMethodRefreshToken       = "/" + ServiceName + "/RefreshToken"
	FullMethodCurrentUser        = "/" + ServiceName + "/CurrentUser"
	FullMethodUpsertProfile      = "/" + ServiceName + "/UpsertProfile"
	FullMethodGetProfile         = "/" + ServiceName + "/GetProfile"
	FullMethodListProfiles       = "/" + ServiceName + "/ListProfiles"
	FullMethodCreateUpload       = "/" + ServiceName + "/CreateUpload"
	FullMethodPutObject          = "/" + ServiceName + "/PutObject"
	FullMethodGetPublicURL       = "/" + ServiceName + "/GetPublicURL"
	FullMethodRemoveObjects      = "/" + ServiceName + "/RemoveObjects"
	FullMethodInsertMemo         = "/" + ServiceName + "/InsertMemo"
	FullMethodListPublishedMemos = "/" + ServiceName + "/ListPublishedMemos"
	FullMethodIncrementLikes     = "/" + ServiceName + "/IncrementLikes"
	FullMethodIncrementComments  = "/" + ServiceName + "/IncrementComments"
	FullMethodWatchChanges       = "/" + ServiceName + "/WatchChanges"
)

// PublicMethods can be called without an access token.
var PublicMethods = map[string]bool{
	FullMethodPing:         true,
	FullMethodRegister:     true,
	FullMethodLogin:        true,
	FullMethodRefreshToken: true,
}

// SubscribedHeader is sent by WatchChanges once the subscription is live.
const SubscribedHeader = "x-voicefeed-subscribed"

// ChangeStream is the server side of WatchChanges.
type ChangeStream = grpc.ServerStreamingServer[models.ChangeEvent]

// VoiceFeedServer is implemented by the voicefeed gRPC server.
type VoiceFeedServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*UserResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	CurrentUser(context.Context, *Empty) (*UserResponse, error)
	UpsertProfile(context.Context, *UpsertProfileRequest) (*ProfileResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error)
	ListProfiles(context.Context, *ListProfilesRequest) (*ListProfilesResponse, error)
	CreateUpload(context.Context, *CreateUploadRequest) (*CreateUploadResponse, error)
	PutObject(context.Context, *PutObjectRequest) (*PutObjectResponse, error)
	GetPublicURL(context.Context, *GetPublicURLRequest) (*GetPublicURLResponse, error)
	RemoveObjects(context.Context, *RemoveObjectsRequest) (*Empty, error)
	InsertMemo(context.Context, *InsertMemoRequest) (*MemoResponse, error)
	ListPublishedMemos(context.Context, *ListPublishedMemosRequest) (*ListMemosResponse, error)
	IncrementLikes(context.Context, *IncrementRequest) (*CounterResponse, error)
	IncrementComments(context.Context, *IncrementRequest) (*CounterResponse, error)
	WatchChanges(*WatchChangesRequest, ChangeStream) error
}

// UnimplementedVoiceFeedServer answers every call with codes.Unimplemented.
// Embed it to implement a subset of the service.
type UnimplementedVoiceFeedServer struct{}

func unimplemented(m string) error { return status.Errorf(codes.Unimplemented, "method %s not implemented", m) }

func (UnimplementedVoiceFeedServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, unimplemented("Ping")
}
func (UnimplementedVoiceFeedServer) Register(context.Context, *RegisterRequest) (*UserResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedVoiceFeedServer) Login(context.Context, *LoginRequest) (*TokenResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedVoiceFeedServer) RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error) {
	return nil, unimplemented("RefreshToken")
}
func (UnimplementedVoiceFeedServer) CurrentUser(context.Context, *Empty) (*UserResponse, error) {
	return nil, unimplemented("CurrentUser")
}
func (UnimplementedVoiceFeedServer) UpsertProfile(context.Context, *UpsertProfileRequest) (*ProfileResponse, error) {
	return nil, unimplemented("UpsertProfile")
}
func (UnimplementedVoiceFeedServer) GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error) {
	return nil, unimplemented("GetProfile")
}
func (UnimplementedVoiceFeedServer) ListProfiles(context.Context, *ListProfilesRequest) (*ListProfilesResponse, error) {
	return nil, unimplemented("ListProfiles")
}
func (UnimplementedVoiceFeedServer) CreateUpload(context.Context, *CreateUploadRequest) (*CreateUploadResponse, error) {
	return nil, unimplemented("CreateUpload")
}
func (UnimplementedVoiceFeedServer) PutObject(context.Context, *PutObjectRequest) (*PutObjectResponse, error) {
	return nil, unimplemented("PutObject")
}
func (UnimplementedVoiceFeedServer) GetPublicURL(context.Context, *GetPublicURLRequest) (*GetPublicURLResponse, error) {
	return nil, unimplemented("GetPublicURL")
}
func (UnimplementedVoiceFeedServer) RemoveObjects(context.Context, *RemoveObjectsRequest) (*Empty, error) {
	return nil, unimplemented("RemoveObjects")
}
func (UnimplementedVoiceFeedServer) InsertMemo(context.Context, *InsertMemoRequest) (*MemoResponse, error) {
	return nil, unimplemented("InsertMemo")
}
func (UnimplementedVoiceFeedServer) ListPublishedMemos(context.Context, *ListPublishedMemosRequest) (*ListMemosResponse, error) {
	return nil, unimplemented("ListPublishedMemos")
}
func (UnimplementedVoiceFeedServer) IncrementLikes(context.Context, *IncrementRequest) (*CounterResponse, error) {
	return nil, unimplemented("IncrementLikes")
}
func (UnimplementedVoiceFeedServer) IncrementComments(context.Context, *IncrementRequest) (*CounterResponse, error) {
	return nil, unimplemented("IncrementComments")
}
func (UnimplementedVoiceFeedServer) WatchChanges(*WatchChangesRequest, ChangeStream) error {
	return unimplemented("WatchChanges")
}

func unary[Req, Resp any](name string, call func(VoiceFeedServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(VoiceFeedServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

func watchChangesHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchChangesRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(VoiceFeedServer).WatchChanges(in, &grpc.GenericServerStream[WatchChangesRequest, models.ChangeEvent]{ServerStream: stream})
}

// ServiceDesc describes voicefeed.v1.VoiceFeed for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VoiceFeedServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", VoiceFeedServer.Ping),
		unary("Register", VoiceFeedServer.Register),
		unary("Login", VoiceFeedServer.Login),
		unary("RefreshToken", VoiceFeedServer.RefreshToken),
		unary("CurrentUser", VoiceFeedServer.CurrentUser),
		unary("UpsertProfile", VoiceFeedServer.UpsertProfile),
		unary("GetProfile", VoiceFeedServer.GetProfile),
		unary("ListProfiles", VoiceFeedServer.ListProfiles),
		unary("CreateUpload", VoiceFeedServer.CreateUpload),
		unary("PutObject", VoiceFeedServer.PutObject),
		unary("GetPublicURL", VoiceFeedServer.GetPublicURL),
		unary("RemoveObjects", VoiceFeedServer.RemoveObjects),
		unary("InsertMemo", VoiceFeedServer.InsertMemo),
		unary("ListPublishedMemos", VoiceFeedServer.ListPublishedMemos),
		unary("IncrementLikes", VoiceFeedServer.IncrementLikes),
		unary("IncrementComments", VoiceFeedServer.IncrementComments),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchChanges",
			Handler:       watchChangesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "voicefeed/v1/voicefeed",
}

// RegisterVoiceFeedServer registers srv on s.
func RegisterVoiceFeedServer(s grpc.ServiceRegistrar, srv VoiceFeedServer) {
	s.RegisterService(&ServiceDesc, srv)
}
