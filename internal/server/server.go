package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/owlcms/tracker-core/internal/config"
	httpserver "github.com/owlcms/tracker-core/internal/http"
	"github.com/owlcms/tracker-core/internal/hub"
	"github.com/owlcms/tracker-core/internal/logging"
	"github.com/owlcms/tracker-core/internal/metrics"
	"github.com/owlcms/tracker-core/internal/transport"
)

var metricsSetup = metrics.Setup

// Server wires the hub, the producer endpoint, and the probe/metrics
// servers together.
type Server struct {
	cfg           config.Config
	logger        logging.Logger
	metrics       *metrics.Recorder
	hub           *hub.Hub
	transport     *transport.Server
	httpServer    httpServer
	metricsServer httpServer
	metricsStop   func(context.Context) error
}

// New constructs a server with default wiring.
func New(cfg config.Config, logger logging.Logger) *Server {
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger)

	h := hub.New(hub.Options{
		Logger:         logger,
		Recorder:       recorder,
		LocalFilesDir:  cfg.LocalFilesDir,
		LocalURLPrefix: cfg.LocalURLPrefix,
	})

	ts := transport.NewServer(transport.Options{
		Hub:       h,
		Logger:    logger,
		UpdateKey: cfg.UpdateKey,
	})

	handler := httpserver.NewHandler(h, logger)
	router := httpserver.NewRouter(handler, cfg.Endpoint, ts)
	wrapped := httpserver.LoggingMiddleware(logger, router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      wrapped,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		hub:           h,
		transport:     ts,
		httpServer:    netHTTPServer{srv: srv},
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}
}

// Hub exposes the hub handle for embedders.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

func buildMetrics(cfg config.Config, logger logging.Logger) (*metrics.Recorder, httpServer, func(context.Context) error) {
	recorder, promHandler, shutdown, err := metricsSetup(context.Background(), metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  "competition-hub",
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("metrics setup failed, continuing without telemetry", logging.FieldError, err)
		}
		return metrics.NewRecorder(), nil, nil
	}
	if promHandler == nil {
		return recorder, nil, shutdown
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promHandler)
	srv := &http.Server{Addr: ":" + cfg.Metrics.Port, Handler: mux}
	return recorder, netHTTPServer{srv: srv}, shutdown
}

// Run starts the servers and waits for context cancellation to shut down
// gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)

	<-ctx.Done()
	if s.logger != nil {
		s.logger.Info("shutdown signal received")
	}

	s.gracefulShutdown()
}

func (s *Server) startServer(stop context.CancelFunc) {
	if s.logger != nil {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr())
	}
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	if s.logger != nil {
		s.logger.Info("metrics server starting", "addr", s.metricsServer.Addr())
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics shutdown failed", logging.FieldError, err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Warn("metrics server shutdown failed", logging.FieldError, err)
		}
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Error("graceful shutdown failed", logging.FieldError, err)
	}

	if s.logger != nil {
		s.logger.Info("shutdown complete")
	}
}

func launchServer(name string, srv httpServer, logger logging.Logger, onError func(error)) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if logger != nil {
				logger.Error(name+" server failed", logging.FieldError, err)
			}
			if onError != nil {
				onError(err)
			}
		}
	}()
}
