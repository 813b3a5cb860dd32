package server

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"rhel-lightspeed/cla-proxy/pkg/backend"
	"rhel-lightspeed/cla-proxy/pkg/config"
	"rhel-lightspeed/cla-proxy/pkg/proxy/handlers"
	"rhel-lightspeed/cla-proxy/pkg/proxy/middleware"
	securityTLS "rhel-lightspeed/cla-proxy/pkg/security/tls"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/health"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/metrics"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/tracing"
)

// Route patterns served by the proxy.
const (
	RouteHealth          = "GET /health"
	RouteReady           = "GET /ready"
	RouteChatCompletions = "POST /v1/chat/completions"
	RouteModels          = "GET /v1/models"
)

// identityCheckName is the readiness check that loads the client identity.
const identityCheckName = "client_identity"

// Server is the local HTTP front of the proxy.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	tracer   trace.TracerProvider

	metrics   *metrics.Collector
	identity  securityTLS.IdentitySource
	watcher   *securityTLS.IdentityWatcher
	expiry    *securityTLS.ExpiryMonitor
	forwarder *backend.Forwarder
	checker   *health.Checker
	handler   http.Handler

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the server and everything it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry registers metrics with registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithTracerProvider traces backend calls with tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp
	}
}

// New builds the server from cfg. The client identity is prepared here: a
// watched identity is loaded immediately, so a missing key pair fails
// startup, while an unwatched one is read on every request.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	s := &Server{
		config:       cfg,
		logger:       slog.Default(),
		shutdownChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.metrics = metrics.NewCollector(&cfg.Metrics, s.registry)

	if err := s.setupIdentity(); err != nil {
		return nil, err
	}

	factory, err := backend.NewClientFactory(cfg.Backend, s.identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create client factory: %w", err)
	}

	fwdOpts := []backend.ForwarderOption{
		backend.WithMetrics(s.metrics),
		backend.WithLogger(s.logger),
	}
	if s.tracer != nil {
		fwdOpts = append(fwdOpts, backend.WithTracerProvider(s.tracer))
	}
	s.forwarder, err = backend.NewForwarder(cfg.Backend, factory, fwdOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create forwarder: %w", err)
	}

	s.checker = health.New(0)
	s.checker.RegisterCheck(identityCheckName, func(context.Context) error {
		_, err := securityTLS.CheckIdentity(s.identity)
		return err
	})

	s.expiry = securityTLS.NewExpiryMonitor(
		s.identity,
		cfg.Backend.Auth.ExpiryCheckSchedule,
		cfg.Backend.Auth.ExpiryWarningDays,
		s.metrics,
		s.logger,
	)

	s.handler = s.setupRoutes()
	return s, nil
}

func (s *Server) setupIdentity() error {
	auth := s.config.Backend.Auth
	if !auth.Watch {
		identity, err := securityTLS.NewFileIdentity(auth)
		if err != nil {
			return fmt.Errorf("failed to prepare client identity: %w", err)
		}
		s.identity = identity
		return nil
	}

	watcher, err := securityTLS.NewIdentityWatcher(auth, s.logger)
	if err != nil {
		return fmt.Errorf("failed to watch client identity: %w", err)
	}
	watcher.OnReload(func(leaf *x509.Certificate) {
		s.metrics.SetCertificateExpiry(leaf.Subject.CommonName, leaf.NotAfter)
	})
	s.watcher = watcher
	s.identity = watcher
	return nil
}

// Start serves until ctx is cancelled, Shutdown is called or the listener
// fails. The identity watcher and the expiry monitor run for as long as the
// server does.
func (s *Server) Start(ctx context.Context) error {
	if s.IsRunning() {
		return fmt.Errorf("server is already running")
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	if err := s.expiry.Start(bgCtx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.Server.ReadTimeout.Std(),
		WriteTimeout:   s.config.Server.WriteTimeout.Std(),
		IdleTimeout:    s.config.Server.IdleTimeout.Std(),
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}
	s.isRunning = true
	s.mu.Unlock()

	if s.watcher != nil {
		s.watcher.Start(bgCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server",
			"address", listener.Addr().String(),
			"backend", s.config.Backend.Endpoint,
			"timeout_seconds", s.config.Backend.Timeout,
			"watch_identity", s.watcher != nil,
		)

		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server within the configured shutdown
// timeout. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		defer s.stopBackground()

		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		timeout := s.config.Server.ShutdownTimeout.Std()
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})

	return shutdownErr
}

func (s *Server) stopBackground() {
	s.expiry.Stop()
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop identity watcher", "error", err)
		}
	}
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	guard := middleware.DeadlineGuard(
		s.config.Backend.TimeoutDuration(),
		middleware.WithTimeoutRecorder(s.metrics),
		middleware.WithGuardLogger(s.logger),
	)

	mux.Handle(RouteHealth, handlers.NewHealthHandler())
	mux.Handle(RouteReady, handlers.NewReadyHandler(s.checker, s.metrics, s.logger))
	mux.Handle(RouteChatCompletions, guard(handlers.NewChatHandler(s.forwarder, s.metrics, s.logger)))
	mux.Handle(RouteModels, guard(handlers.NewModelsHandler(s.forwarder, s.metrics, s.logger)))

	if s.config.Metrics.Enabled {
		mux.Handle("GET "+s.config.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.MetricsMiddleware(s.metrics)(handler)
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = middleware.RecoveryMiddleware(s.logger, s.metrics)(handler)

	return handler
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Metrics returns the collector the server records into.
func (s *Server) Metrics() *metrics.Collector {
	return s.metrics
}
