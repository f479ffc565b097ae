package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/voicefeed/internal/dbx"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/memos"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	created   *models.User
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.created = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	u.ID = "new-id"
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr error

	createErr error

	purged int64
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}
func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}
func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}
func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.purged, nil
}

type fakeMemosRepo struct {
	memos.Repository

	inserted  *models.NewVoiceMemo
	insertErr error
	list      []models.VoiceMemo
	listErr   error
	incN      int
	incErr    error
}

func (f *fakeMemosRepo) Insert(ctx context.Context, in models.NewVoiceMemo) (*models.VoiceMemo, error) {
	f.inserted = &in
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &models.VoiceMemo{ID: "m1", UserID: in.UserID, Title: in.Title, AudioURL: in.AudioURL,
		Duration: in.Duration, IsPublished: in.IsPublished}, nil
}
func (f *fakeMemosRepo) SelectPublished(ctx context.Context) ([]models.VoiceMemo, error) {
	return f.list, f.listErr
}
func (f *fakeMemosRepo) IncrementLikes(ctx context.Context, id string) (int, error) {
	return f.incN, f.incErr
}
func (f *fakeMemosRepo) IncrementComments(ctx context.Context, id string) (int, error) {
	return f.incN, f.incErr
}

type fakeProfilesRepo struct {
	profiles.Repository

	upserted  *models.ProfileInput
	upsertErr error
	get       *models.Profile
	getErr    error
	listIDs   []string
	list      []models.ProfileProjection
	listErr   error
}

func (f *fakeProfilesRepo) Upsert(ctx context.Context, userID string, in models.ProfileInput) (*models.Profile, error) {
	f.upserted = &in
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &models.Profile{ID: "p1", UserID: userID, DisplayName: in.DisplayName, Age: in.Age,
		PhotoURL: in.PhotoURL, Interests: in.Interests}, nil
}
func (f *fakeProfilesRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return f.get, f.getErr
}
func (f *fakeProfilesRepo) SelectProjections(ctx context.Context, ids []string) ([]models.ProfileProjection, error) {
	f.listIDs = ids
	return f.list, f.listErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	m *fakeMemosRepo
	p *fakeProfilesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Memos(db dbx.DBTX) memos.Repository                 { return m.m }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profiles.Repository           { return m.p }

type recordingBroker struct {
	changes.Broker

	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (b *recordingBroker) Publish(ctx context.Context, ev models.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBroker) published() []models.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChangeEvent(nil), b.events...)
}
