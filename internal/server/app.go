// Package server initializes and runs the voicefeed backend: it opens
// PostgreSQL and applies migrations, selects the change broker, and runs
// the gRPC and ops HTTP servers until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/config"
	"github.com/dmitrijs2005/voicefeed/internal/server/httpapi"
	"github.com/dmitrijs2005/voicefeed/internal/server/metrics"
	"github.com/dmitrijs2005/voicefeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/voicefeed/internal/server/services"

	gs "github.com/dmitrijs2005/voicefeed/internal/server/grpc"
)

// tokenPurgeInterval is how often expired refresh tokens are deleted.
const tokenPurgeInterval = time.Hour

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	broker  changes.Broker
	metrics *metrics.Metrics

	userService    *services.UserService
	memoService    *services.MemoService
	profileService *services.ProfileService
	storageService *services.StorageService
}

// newLogger returns a rotated zap file logger when LogFile is set and a
// JSON slog logger on stdout otherwise.
func newLogger(c *config.Config) logging.Logger {
	if c.LogFile != "" {
		return logging.NewFileLogger(logging.FileOptions{
			Path:       c.LogFile,
			Level:      c.LogLevel,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		})
	}
	return logging.NewJSONLogger(os.Stdout, c.LogLevel)
}

func newBroker(c *config.Config, l logging.Logger) (changes.Broker, error) {
	if c.NATSURL == "" {
		return changes.NewMemoryBroker(), nil
	}
	return changes.ConnectNATS(c.NATSURL, logging.ForModule(l, "nats"))
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := newLogger(c)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	broker, err := newBroker(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		broker:         broker,
		metrics:        metrics.New(true),
		userService:    services.NewUserService(db, rm, c),
		memoService:    services.NewMemoService(db, rm, broker, logger),
		profileService: services.NewProfileService(db, rm),
		storageService: services.NewStorageService(c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Services{
		Users:    app.userService,
		Memos:    app.memoService,
		Profiles: app.profileService,
		Storage:  app.storageService,
		Broker:   app.broker,
	}, app.config.SecretKey, app.metrics)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.broker, app.metrics, app.config.SecretKey, app.db.PingContext,
		httpapi.WithAllowedOrigins(app.config.AllowedOrigins...))

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeTokens deletes expired refresh tokens every interval until ctx ends.
func (app *App) purgeTokens(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := app.userService.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "err", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeTokens(ctx, tokenPurgeInterval)
	}()

	wg.Wait()

	app.close()
}

func (app *App) close() {
	ctx := context.Background()
	if err := app.broker.Close(); err != nil {
		app.logger.Warn(ctx, "broker close", "err", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "err", err)
	}
	if z, ok := app.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}
	app.logger.Info(ctx, "App stopped")
}
