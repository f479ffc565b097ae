package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/cryptox"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/server/auth"
	"github.com/dmitrijs2005/voicefeed/internal/server/config"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

func storedUser(id, password string) *models.User {
	salt := cryptox.NewSalt()
	return &models.User{ID: id, Email: "ada@example.com", Salt: salt, PasswordHash: cryptox.HashPassword([]byte(password), salt)}
}

func TestRefreshToken_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	pair, err := s.RefreshToken(context.Background(), "refresh-xyz")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	uid, err := auth.GetUserIDFromToken(pair.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_Expired(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u1", ExpiresAt: time.Now().Add(-1 * time.Minute)},
		},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestRefreshToken_FindErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{findErr: errBoom{}}})
	_, err := s.RefreshToken(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error searching refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped find error, got %v", err)
	}

	s = newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{findErr: common.ErrorNotFound}})
	_, err = s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefreshToken_DeleteErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut: &models.RefreshToken{UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Minute)},
			delErr:  errBoom{},
		},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error deleting refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_GeneratePair_CreateErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		r: &fakeRefreshRepo{
			findOut:   &models.RefreshToken{UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Minute)},
			createErr: errBoom{},
		},
	}
	s := newUserService(t, db, rm)

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestRegister(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{}
	s := newUserService(t, db, &fakeRepoManager{u: repo, r: &fakeRefreshRepo{}})

	u, err := s.Register(context.Background(), "  Ada@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "new-id", u.ID)
	assert.Equal(t, "ada@example.com", repo.created.Email)
	assert.Len(t, repo.created.Salt, cryptox.SaltSize)
	assert.True(t, cryptox.VerifyPassword([]byte("correct horse"), repo.created.Salt, repo.created.PasswordHash))
}

func TestRegister_Rejections(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRefreshRepo{}})

	_, err := s.Register(context.Background(), "not-an-email", "correct horse")
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Register(context.Background(), "ada@example.com", "short")
	assert.ErrorIs(t, err, common.ErrorValidation)

	dup := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorAlreadyExists}})
	_, err = dup.Register(context.Background(), "ada@example.com", "correct horse")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	broken := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}})
	_, err = broken.Register(context.Background(), "ada@example.com", "correct horse")
	if err == nil || !regexp.MustCompile(`error creating user: .*boom`).MatchString(err.Error()) {
		t.Fatalf("Register expected wrapped error, got %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// not found → unauthorized
	sNF := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}, r: &fakeRefreshRepo{}})
	if _, err := sNF.Login(context.Background(), "ghost@example.com", "x"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("notfound → unauthorized, got %v", err)
	}

	// internal error
	sIE := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}, r: &fakeRefreshRepo{}})
	if _, err := sIE.Login(context.Background(), "u@example.com", "x"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("internal → ErrorInternal, got %v", err)
	}

	// wrong password → unauthorized
	sWP := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: storedUser("u1", "right-password")}, r: &fakeRefreshRepo{}})
	if _, err := sWP.Login(context.Background(), "ada@example.com", "wrong-password"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("wrong password → unauthorized, got %v", err)
	}

	sOK := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: storedUser("u1", "right-password")}, r: &fakeRefreshRepo{}})
	pair, err := sOK.Login(context.Background(), "ada@example.com", "right-password")
	if err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("Login success: pair=%+v err=%v", pair, err)
	}

	sRT := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: storedUser("u1", "right-password")}, r: &fakeRefreshRepo{createErr: errBoom{}}})
	if _, err := sRT.Login(context.Background(), "ada@example.com", "right-password"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("refresh store failure → ErrorInternal, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{ID: "u1", Email: "ada@example.com"}}})
	u, err := s.CurrentUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	s = newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}})
	_, err = s.CurrentUser(context.Background(), "gone")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestPurgeExpiredTokens(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{r: &fakeRefreshRepo{purged: 7}})
	n, err := s.PurgeExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
