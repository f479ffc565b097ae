package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/backend/backendtest"
	"github.com/dmitrijs2005/voicefeed/internal/client/config"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
)

var testUser = models.User{ID: "u1", Email: "a@x.io"}

// fakeAccount signs the Memory backend in and out.
type fakeAccount struct {
	mem      *backendtest.Memory
	password string
	taken    map[string]bool
	logins   int
}

func (f *fakeAccount) Register(_ context.Context, email, _ string) (*models.User, error) {
	if f.taken[email] {
		return nil, fmt.Errorf("%w: email is already registered", common.ErrorAlreadyExists)
	}
	return &models.User{ID: "u2", Email: email}, nil
}

func (f *fakeAccount) Login(_ context.Context, email, password string) (*models.User, error) {
	f.logins++
	if password != f.password {
		return nil, common.ErrUnauthenticated
	}
	u := testUser
	u.Email = email
	f.mem.User = &u
	return &u, nil
}

func (f *fakeAccount) Logout() error {
	f.mem.User = nil
	return nil
}

// syncBuffer is written by background feed refreshes and read by tests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	mem     *backendtest.Memory
	account *fakeAccount
	backend backend.Backend
	out     *syncBuffer
	cfg     *config.Config
}

func newHarness(t *testing.T, user *models.User) *harness {
	t.Helper()
	stubTerminal(t, false, nil, errors.New("no terminal"))

	mem := backendtest.NewMemory(user)
	return &harness{
		mem:     mem,
		account: &fakeAccount{mem: mem, password: "secret", taken: map[string]bool{}},
		backend: mem.Backend(),
		out:     &syncBuffer{},
	}
}

func (h *harness) options(in io.Reader) Options {
	return Options{
		In:     in,
		Out:    h.out,
		Logger: logging.Discard(),
		Connect: func(cfg *config.Config, _ logging.Logger) (*Connection, error) {
			h.cfg = cfg
			return &Connection{Account: h.account, Backend: h.backend}, nil
		},
	}
}

// run executes args with stdin and returns the exit code.
func (h *harness) run(stdin string, args ...string) int {
	return Execute(context.Background(), args, h.options(strings.NewReader(stdin)))
}

// newApp builds an App directly, bypassing the command tree.
func (h *harness) newApp(stdin string) *App {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.TimeSlice = 0
	h.cfg = cfg
	return NewApp(cfg, &Connection{Account: h.account, Backend: h.backend}, logging.Discard(), strings.NewReader(stdin), h.out)
}
