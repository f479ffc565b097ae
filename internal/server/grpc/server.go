// Package grpc exposes the voicefeed services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/voicefeed/internal/api"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/metrics"
	"github.com/dmitrijs2005/voicefeed/internal/server/services"
	"google.golang.org/grpc"
)

type userSvc interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

type memoSvc interface {
	Insert(ctx context.Context, userID string, in models.NewVoiceMemo) (*models.VoiceMemo, error)
	ListPublished(ctx context.Context) ([]models.VoiceMemo, error)
	IncrementLikes(ctx context.Context, id string) (int, error)
	IncrementComments(ctx context.Context, id string) (int, error)
}

type profileSvc interface {
	Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error)
	Get(ctx context.Context, userID string) (*models.Profile, error)
	ListProjections(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error)
}

type storageSvc interface {
	CreateUpload(ctx context.Context, userID, bucket, key, contentType string, overwrite bool) (*services.UploadTicket, error)
	Put(ctx context.Context, userID, bucket, key string, data []byte, contentType string, overwrite bool) (string, error)
	PublicURL(bucket, key string) (string, error)
	Remove(ctx context.Context, userID, bucket string, keys []string) error
}

// Services are the business components served by GRPCServer.
type Services struct {
	Users    userSvc
	Memos    memoSvc
	Profiles profileSvc
	Storage  storageSvc
	Broker   changes.Broker
}

type GRPCServer struct {
	api.UnimplementedVoiceFeedServer
	address   string
	users     userSvc
	memos     memoSvc
	profiles  profileSvc
	storage   storageSvc
	broker    changes.Broker
	logger    logging.Logger
	metrics   *metrics.Metrics
	jwtSecret []byte
}

// NewGRPCServer wires svc behind address. m may be nil.
func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string, m *metrics.Metrics) *GRPCServer {
	if m == nil {
		m = metrics.New(false)
	}
	return &GRPCServer{
		address:   a,
		logger:    logging.ForModule(l, "grpc_server"),
		users:     svc.Users,
		memos:     svc.Memos,
		profiles:  svc.Profiles,
		storage:   svc.Storage,
		broker:    svc.Broker,
		metrics:   m,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.streamMetricsInterceptor, s.streamAccessTokenInterceptor),
	)
	api.RegisterVoiceFeedServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
