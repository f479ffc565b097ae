package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/api"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/auth"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := newServer(newDeps())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", nopLogger{}, Services{}, "secret", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startBufconn serves s over an in-memory listener and returns a client.
func startBufconn(t *testing.T, s *GRPCServer) api.VoiceFeedClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return api.NewVoiceFeedClient(conn)
}

func authed(t *testing.T, s *GRPCServer, userID string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(userID, s.jwtSecret, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func TestBufconn_UnaryOverJSONCodec(t *testing.T) {
	d := newDeps()
	d.u.current = &models.User{ID: "u1", Email: "a@b.c"}
	s := newServer(d)
	c := startBufconn(t, s)

	pong, err := c.Ping(context.Background(), &api.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.Status)

	_, err = c.CurrentUser(context.Background(), &api.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	me, err := c.CurrentUser(authed(t, s, "u1"), &api.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", me.User.Email)

	memo, err := c.InsertMemo(authed(t, s, "u1"), &api.InsertMemoRequest{Memo: models.NewVoiceMemo{
		UserID: "u1", Title: "hi", AudioURL: "http://a", IsPublished: true,
	}})
	require.NoError(t, err)
	assert.Equal(t, "hi", memo.Memo.Title)
	assert.True(t, d.m.inserted.IsPublished)
}

func TestBufconn_WatchChanges(t *testing.T) {
	d := newDeps()
	s := newServer(d)
	c := startBufconn(t, s)

	ctx, cancel := context.WithCancel(authed(t, s, "u1"))
	defer cancel()

	stream, err := c.WatchChanges(ctx, &api.WatchChangesRequest{
		Table:  common.TableVoiceMemos,
		Events: models.EventFilter{models.EventInsert},
	})
	require.NoError(t, err)
	_, err = stream.Header()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, d.b.Publish(context.Background(), changes.NewEvent(common.TableVoiceMemos, models.EventUpdate, "m0")))
	require.NoError(t, d.b.Publish(context.Background(), changes.NewEvent(common.TableVoiceMemos, models.EventInsert, "m1")))

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, models.EventInsert, ev.Type, "filtered event must not be delivered")
	assert.Equal(t, "m1", ev.RecordID)

	cancel()
	assert.Eventually(t, func() bool { return d.b.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBufconn_WatchChanges_RejectsUnknownTable(t *testing.T) {
	s := newServer(newDeps())
	c := startBufconn(t, s)

	stream, err := c.WatchChanges(authed(t, s, "u1"), &api.WatchChangesRequest{Table: "users"})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBufconn_WatchChanges_RequiresToken(t *testing.T) {
	s := newServer(newDeps())
	c := startBufconn(t, s)

	stream, err := c.WatchChanges(context.Background(), &api.WatchChangesRequest{Table: common.TableVoiceMemos})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
