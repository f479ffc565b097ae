// Package httpapi serves the operational HTTP endpoints: health, Prometheus
// metrics and a websocket bridge of the change stream for browser clients.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/voicefeed/internal/logging"
	"github.com/dmitrijs2005/voicefeed/internal/server/changes"
	"github.com/dmitrijs2005/voicefeed/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type Server struct {
	address   string
	logger    logging.Logger
	broker    changes.Broker
	metrics   *metrics.Metrics
	jwtSecret []byte
	ping      Pinger

	allowedOrigins map[string]struct{}
	upgrader       *websocket.Upgrader
}

type Option func(*Server)

// WithAllowedOrigins lists the browser origins, e.g. "https://app.example.com",
// that may open /ws/changes besides the server's own.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			if o = normalizeOrigin(o); o != "" {
				s.allowedOrigins[o] = struct{}{}
			}
		}
	}
}

func NewServer(a string, l logging.Logger, b changes.Broker, m *metrics.Metrics, secretKey string, ping Pinger, opts ...Option) *Server {
	if m == nil {
		m = metrics.New(false)
	}
	s := &Server{
		address:        a,
		logger:         logging.ForModule(l, "http_server"),
		broker:         b,
		metrics:        m,
		jwtSecret:      []byte(secretKey),
		ping:           ping,
		allowedOrigins: map[string]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	s.upgrader = s.newUpgrader()
	return s
}

// Router returns the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/ws/changes", s.watchChanges)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
