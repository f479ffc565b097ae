package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/voicefeed/internal/backend"
	"github.com/dmitrijs2005/voicefeed/internal/client/config"
	"github.com/dmitrijs2005/voicefeed/internal/client/remote"
	"github.com/dmitrijs2005/voicefeed/internal/common"
	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/models"
	"github.com/dmitrijs2005/voicefeed/internal/publish"
)

// View is the screen the user is on. It only changes through App methods.
type View string

const (
	ViewSignedOut  View = "signed-out"
	ViewOnboarding View = "onboarding"
	ViewFeed       View = "feed"
	ViewRecorder   View = "recorder"
)

// Account covers the session operations that are not backend capabilities.
type Account interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout() error
}

// Connection is what a Connector hands to the App.
type Connection struct {
	Account Account
	Backend backend.Backend
	Close   func() error
}

// Connector opens the backend described by cfg.
type Connector func(cfg *config.Config, l logging.Logger) (*Connection, error)

// RemoteConnector connects to the voicefeed gRPC server.
func RemoteConnector(cfg *config.Config, l logging.Logger) (*Connection, error) {
	c, err := remote.New(remote.Options{
		Address:        cfg.ServerEndpointAddr,
		SessionFile:    cfg.SessionFile,
		InlineUpload:   cfg.InlineUpload,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logging.ForModule(l, "remote"),
	})
	if err != nil {
		return nil, err
	}
	return &Connection{Account: c, Backend: c.Backend(), Close: c.Close}, nil
}

type App struct {
	config  *config.Config
	account Account
	backend backend.Backend
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	closeFn func() error

	mu   sync.Mutex
	view View
	user *models.User
}

func NewApp(c *config.Config, conn *Connection, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:  c,
		account: conn.Account,
		backend: conn.Backend,
		logger:  l,
		reader:  bufio.NewReader(in),
		out:     out,
		closeFn: conn.Close,
		view:    ViewSignedOut,
	}
}

func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) setView(v View) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.view != v {
		a.logger.Debug(context.Background(), "view changed", "from", a.view, "to", v)
		a.view = v
	}
}

func (a *App) setUser(u *models.User) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
}

// getStatus renders the signed-in user and view for the shell prompt.
func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return fmt.Sprintf("(%s)", a.view)
	}
	return fmt.Sprintf("(%s %s)", a.user.Email, a.view)
}

// requireUser returns the signed-in user or ErrUnauthenticated.
func (a *App) requireUser(ctx context.Context) (*models.User, error) {
	u, err := a.backend.Auth.CurrentUser(ctx)
	if err != nil {
		a.setUser(nil)
		a.setView(ViewSignedOut)
		return nil, err
	}
	a.setUser(u)
	return u, nil
}

func (a *App) pipeline(cleanupOrphans bool) *publish.Pipeline {
	opts := []publish.Option{
		publish.WithBucket(a.config.Bucket),
		publish.WithLogger(logging.ForModule(a.logger, "publish")),
	}
	if cleanupOrphans {
		opts = append(opts, publish.WithOrphanCleanup())
	}
	return publish.New(a.backend.Memos, a.backend.Objects, opts...)
}

// checkProfile moves to onboarding when the user has no profile yet.
func (a *App) checkProfile(ctx context.Context, u *models.User) (*models.Profile, error) {
	p, err := a.backend.Profiles.GetProfile(ctx, u.ID)
	if err != nil {
		if isNotFound(err) {
			a.setView(ViewOnboarding)
			a.info("No profile found, run onboard to create one")
			return nil, nil
		}
		return nil, err
	}
	a.setView(ViewFeed)
	return p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
