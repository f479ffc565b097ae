// Package remote implements the backend capabilities over the voicefeed
// gRPC API. It keeps the signed-in session on disk and refreshes the
// access token transparently when the server reports it expired.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/api"
	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Options configure New.
type Options struct {
	Address string
	// SessionFile persists tokens between runs. Empty keeps them in memory.
	SessionFile string
	// InlineUpload sends object bytes through the PutObject RPC instead of
	// PUTting them to a presigned URL.
	InlineUpload bool
	// RequestTimeout bounds unary calls. Zero means no extra bound.
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         logging.Logger
}

type Client struct {
	conn    *grpc.ClientConn
	client  api.VoiceFeedClient
	store   *SessionStore
	http    *http.Client
	log     logging.Logger
	inline  bool
	timeout time.Duration

	mu      sync.Mutex
	session Session
}

// New connects lazily to o.Address and loads any saved session. Extra dial
// options are appended after the defaults.
func New(o Options, dialOpts ...grpc.DialOption) (*Client, error) {
	c := &Client{
		store:   NewSessionStore(o.SessionFile),
		http:    o.HTTPClient,
		log:     o.Logger,
		inline:  o.InlineUpload,
		timeout: o.RequestTimeout,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 2 * time.Minute}
	}
	if c.log == nil {
		c.log = logging.Discard()
	}

	sess, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	c.session = sess

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithChainStreamInterceptor(c.streamAccessTokenInterceptor),
	}, dialOpts...)

	conn, err := grpc.NewClient(o.Address, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewVoiceFeedClient(conn)
	return c, nil
}

// Backend exposes c as every backend capability.
func (c *Client) Backend() backend.Backend {
	return backend.Backend{Auth: c, Memos: c, Profiles: c, Objects: c, Notifier: c}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.AccessToken, c.session.RefreshToken
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if err := c.store.Save(s); err != nil {
		c.log.Warn(context.Background(), "could not persist session", "err", err)
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// refresh trades the refresh token for a new pair. The rotated pair is
// persisted immediately since the old refresh token is now spent.
func (c *Client) refresh(ctx context.Context) error {
	_, refreshToken := c.tokens()
	if refreshToken == "" {
		return common.ErrUnauthenticated
	}

	resp, err := c.client.RefreshToken(ctx, &api.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}

	s := c.Session()
	s.AccessToken, s.RefreshToken = resp.AccessToken, resp.RefreshToken
	c.setSession(s)
	return nil
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if api.PublicMethods[method] {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	accessToken, _ := c.tokens()
	err := invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
	if err == nil || !isExpired(err) {
		return err
	}

	if rerr := c.refresh(ctx); rerr != nil {
		c.log.Debug(ctx, "token refresh failed", "err", rerr)
		return err
	}

	// tokens refreshed, retrying with the new access token
	accessToken, _ = c.tokens()
	return invoker(withAccessToken(ctx, accessToken), method, req, reply, cc, opts...)
}

func (c *Client) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	accessToken, _ := c.tokens()
	return streamer(withAccessToken(ctx, accessToken), desc, cc, method, opts...)
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password string) (*models.User, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.Register(ctx, &api.RegisterRequest{Email: email, Password: password})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.User, nil
}

// Login signs in and persists the new session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, mapError(err)
	}
	c.setSession(Session{Email: email, AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})

	u, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	s := c.Session()
	s.UserID = u.ID
	c.setSession(s)
	return u, nil
}

// Logout forgets the session locally.
func (c *Client) Logout() error {
	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()
	return c.store.Clear()
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if access, _ := c.tokens(); access == "" {
		return nil, common.ErrUnauthenticated
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.CurrentUser(ctx, &api.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.User, nil
}

func (c *Client) InsertMemo(ctx context.Context, m models.NewVoiceMemo) (*models.VoiceMemo, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.InsertMemo(ctx, &api.InsertMemoRequest{Memo: m})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.Memo, nil
}

func (c *Client) SelectPublishedMemos(ctx context.Context) ([]models.VoiceMemo, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.ListPublishedMemos(ctx, &api.ListPublishedMemosRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Memos, nil
}

func (c *Client) IncrementLikes(ctx context.Context, memoID string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.client.IncrementLikes(ctx, &api.IncrementRequest{ID: memoID})
	return mapError(err)
}

func (c *Client) IncrementComments(ctx context.Context, memoID string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.client.IncrementComments(ctx, &api.IncrementRequest{ID: memoID})
	return mapError(err)
}

func (c *Client) UpsertProfile(ctx context.Context, p models.ProfileInput) (*models.Profile, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.UpsertProfile(ctx, &api.UpsertProfileRequest{Profile: p})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.Profile, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.GetProfile(ctx, &api.GetProfileRequest{UserID: userID})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.Profile, nil
}

func (c *Client) SelectProfiles(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.ListProfiles(ctx, &api.ListProfilesRequest{UserIDs: userIDs})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Profiles, nil
}

// Upload stores data under key. By default it asks the server for a
// presigned URL and PUTs the bytes straight to object storage.
func (c *Client) Upload(ctx context.Context, bucket, key string, data []byte, opts backend.UploadOptions) (string, error) {
	if c.inline {
		ctx, cancel := c.callCtx(ctx)
		defer cancel()

		resp, err := c.client.PutObject(ctx, &api.PutObjectRequest{
			Bucket:      bucket,
			Key:         key,
			ContentType: opts.ContentType,
			Overwrite:   opts.Overwrite,
			Data:        data,
		})
		if err != nil {
			return "", mapError(err)
		}
		return resp.Path, nil
	}

	tctx, cancel := c.callCtx(ctx)
	ticket, err := c.client.CreateUpload(tctx, &api.CreateUploadRequest{
		Bucket:      bucket,
		Key:         key,
		ContentType: opts.ContentType,
		Overwrite:   opts.Overwrite,
	})
	cancel()
	if err != nil {
		return "", mapError(err)
	}

	if err := netx.PutWithHeaders(ctx, c.http, ticket.URL, data, ticket.Headers); err != nil {
		return "", err
	}
	return ticket.Key, nil
}

func (c *Client) PublicURL(ctx context.Context, bucket, key string) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	resp, err := c.client.GetPublicURL(ctx, &api.GetPublicURLRequest{Bucket: bucket, Key: key})
	if err != nil {
		return "", mapError(err)
	}
	return resp.URL, nil
}

func (c *Client) Remove(ctx context.Context, bucket string, keys []string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	_, err := c.client.RemoveObjects(ctx, &api.RemoveObjectsRequest{Bucket: bucket, Keys: keys})
	return mapError(err)
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe opens a WatchChanges stream and returns once the server has
// registered it. fn runs on the stream goroutine. The stream ends on
// Unsubscribe, when ctx ends, or when the connection drops; a drop is
// logged and not retried.
func (c *Client) Subscribe(ctx context.Context, table string, filter models.EventFilter, fn func(models.ChangeEvent)) (backend.Subscription, error) {
	stream, cancel, err := c.openWatch(ctx, table, filter)
	if isExpired(err) {
		if rerr := c.refresh(ctx); rerr == nil {
			stream, cancel, err = c.openWatch(ctx, table, filter)
		}
	}
	if err != nil {
		return nil, mapError(err)
	}

	go func() {
		defer cancel()
		for {
			ev, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
					c.log.Warn(ctx, "change stream ended", "table", table, "err", err)
				}
				return
			}
			fn(*ev)
		}
	}()

	return &subscription{cancel: cancel}, nil
}

func (c *Client) openWatch(ctx context.Context, table string, filter models.EventFilter) (grpc.ServerStreamingClient[models.ChangeEvent], context.CancelFunc, error) {
	sctx, cancel := context.WithCancel(ctx)

	stream, err := c.client.WatchChanges(sctx, &api.WatchChangesRequest{Table: table, Events: filter})
	if err != nil {
		cancel()
		return nil, nil, err
	}

	// Headers arrive once the server-side subscription is live.
	md, err := stream.Header()
	if err == nil && len(md.Get(api.SubscribedHeader)) == 0 {
		// Trailers-only response: the status explains the failure.
		_, err = stream.Recv()
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("change stream for %s closed", table)
		}
	}
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return stream, cancel, nil
}
