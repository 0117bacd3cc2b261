package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frontdesk-ai/voicecore/pkg/core/intent"
	"github.com/frontdesk-ai/voicecore/pkg/core/session"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/config"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/handlers"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/metrics"
	"github.com/frontdesk-ai/voicecore/pkg/gateway/mw"
)

// Server wires the call-stream gateway: session registry, intent
// router, metrics, staleness sweeper and HTTP surface.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	registry *session.Registry
	router   *intent.Router
	metrics  *metrics.Metrics
	sweeper  *session.Sweeper
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	registry := session.NewRegistry(logger)
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: registry,
		router:   intent.NewRouter(),
		metrics:  metrics.New(cfg.MetricsNamespace),
		sweeper:  session.NewSweeper(registry, cfg.SweepInterval, cfg.SessionMaxAge, logger),
	}
	s.sweeper.OnEvict = s.metrics.RecordEvictions

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.Handle("/v1/calls/stream", handlers.CallsHandler{
		Config:   s.cfg,
		Logger:   s.logger,
		Registry: s.registry,
		Router:   s.router,
		Metrics:  s.metrics,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Registry exposes the session registry for operational inspection.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// StartSweeper runs the stale-session sweeper until ctx is cancelled.
func (s *Server) StartSweeper(ctx context.Context) {
	s.sweeper.Start(ctx)
}

// SweeperDone is closed once the sweeper has exited.
func (s *Server) SweeperDone() <-chan struct{} {
	return s.sweeper.Done()
}
