package grpc

import (
	"context"

	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/services"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeUser struct {
	refreshResp *services.TokenPair
	refreshErr  error

	regResp *models.User
	regErr  error

	loginResp *services.TokenPair
	loginErr  error

	current    *models.User
	currentErr error
	currentID  string
}

func (f *fakeUser) RefreshToken(ctx context.Context, refresh string) (*services.TokenPair, error) {
	return f.refreshResp, f.refreshErr
}
func (f *fakeUser) Register(ctx context.Context, email, password string) (*models.User, error) {
	return f.regResp, f.regErr
}
func (f *fakeUser) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.loginResp, f.loginErr
}
func (f *fakeUser) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	f.currentID = userID
	return f.current, f.currentErr
}

type fakeMemo struct {
	inserted  models.NewVoiceMemo
	insertUID string
	insertErr error

	list    []models.VoiceMemo
	listErr error

	counter    int
	counterErr error
	counterIDs []string
}

func (f *fakeMemo) Insert(ctx context.Context, userID string, in models.NewVoiceMemo) (*models.VoiceMemo, error) {
	f.insertUID, f.inserted = userID, in
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &models.VoiceMemo{ID: "m1", UserID: in.UserID, Title: in.Title, AudioURL: in.AudioURL, IsPublished: in.IsPublished}, nil
}
func (f *fakeMemo) ListPublished(ctx context.Context) ([]models.VoiceMemo, error) {
	return f.list, f.listErr
}
func (f *fakeMemo) IncrementLikes(ctx context.Context, id string) (int, error) {
	f.counterIDs = append(f.counterIDs, "likes:"+id)
	return f.counter, f.counterErr
}
func (f *fakeMemo) IncrementComments(ctx context.Context, id string) (int, error) {
	f.counterIDs = append(f.counterIDs, "comments:"+id)
	return f.counter, f.counterErr
}

type fakeProfile struct {
	upsertUID string
	profile   *models.Profile
	err       error
	getUID    string
	listIn    []string
	list      []models.ProfileProjection
}

func (f *fakeProfile) Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error) {
	f.upsertUID = userID
	return f.profile, f.err
}
func (f *fakeProfile) Get(ctx context.Context, userID string) (*models.Profile, error) {
	f.getUID = userID
	return f.profile, f.err
}
func (f *fakeProfile) ListProjections(ctx context.Context, userIDs []string) ([]models.ProfileProjection, error) {
	f.listIn = userIDs
	return f.list, f.err
}

type fakeStorage struct {
	ticket  *services.UploadTicket
	path    string
	url     string
	err     error
	userID  string
	removed []string
	data    []byte
}

func (f *fakeStorage) CreateUpload(ctx context.Context, userID, bucket, key, contentType string, overwrite bool) (*services.UploadTicket, error) {
	f.userID = userID
	return f.ticket, f.err
}
func (f *fakeStorage) Put(ctx context.Context, userID, bucket, key string, data []byte, contentType string, overwrite bool) (string, error) {
	f.userID, f.data = userID, data
	return f.path, f.err
}
func (f *fakeStorage) PublicURL(bucket, key string) (string, error) {
	return f.url, f.err
}
func (f *fakeStorage) Remove(ctx context.Context, userID, bucket string, keys []string) error {
	f.userID, f.removed = userID, keys
	return f.err
}

type deps struct {
	u *fakeUser
	m *fakeMemo
	p *fakeProfile
	s *fakeStorage
	b *changes.MemoryBroker
}

func newDeps() *deps {
	return &deps{u: &fakeUser{}, m: &fakeMemo{}, p: &fakeProfile{}, s: &fakeStorage{}, b: changes.NewMemoryBroker()}
}

func newServer(d *deps) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, Services{
		Users:    d.u,
		Memos:    d.m,
		Profiles: d.p,
		Storage:  d.s,
		Broker:   d.b,
	}, "k-secret", nil)
}

func withUser(id string) context.Context {
	return context.WithValue(context.Background(), UserIDKey, id)
}
