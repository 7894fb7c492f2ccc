// Package server assembles the HTTP service: repositories over the store
// database, the resource handlers under /api, health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/songzhibin97/portfolio/internal/auth"
	"github.com/songzhibin97/portfolio/internal/config"
	"github.com/songzhibin97/portfolio/internal/handler"
	"github.com/songzhibin97/portfolio/internal/middleware"
	"github.com/songzhibin97/portfolio/internal/repository"
	"github.com/songzhibin97/portfolio/internal/store"
	"github.com/songzhibin97/portfolio/internal/tracing"
	"github.com/songzhibin97/portfolio/pkg/log"
	"github.com/songzhibin97/portfolio/pkg/portfolio"
)

// defaultShutdownTimeout bounds Shutdown when neither ctx nor the config do
const defaultShutdownTimeout = 30 * time.Second

// Server represents the portfolio HTTP server
type Server struct {
	config     *config.Config
	db         store.Database
	engine     *gin.Engine
	httpServer *http.Server
	registry   *prometheus.Registry
	logger     log.Logger
	hasher     *auth.PasswordHasher
	tracer     trace.TracerProvider

	mu       sync.Mutex
	running  bool
	serveErr chan error
}

// Option configures a Server
type Option func(*Server)

// WithPasswordHasher replaces the default bcrypt hasher
func WithPasswordHasher(hasher *auth.PasswordHasher) Option {
	return func(s *Server) {
		s.hasher = hasher
	}
}

// WithTracerProvider sets the provider for request and repository spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp
	}
}

// New creates a server serving the collections of db
func New(cfg *config.Config, db store.Database, logger log.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		logger = log.Component("server")
	}

	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		config:   cfg,
		db:       db,
		engine:   gin.New(),
		registry: prometheus.NewRegistry(),
		logger:   logger,
		hasher:   auth.NewPasswordHasher(),
		tracer:   otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        s.engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// setupRoutes wires middleware, repositories and handlers onto the engine
func (s *Server) setupRoutes() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.engine.Use(middleware.Recovery(s.logger), middleware.RequestID())
	if s.config.Tracing.Enabled {
		s.engine.Use(middleware.Tracing(s.tracer, tracing.Propagator()))
	}
	if s.config.Logging.AccessLog {
		s.engine.Use(middleware.AccessLog(s.logger.With(log.String(log.FieldComponent, "access_log"))))
	}
	if s.config.Metrics.Enabled {
		httpMetrics, err := middleware.NewMetrics(s.config.Metrics.Namespace, s.registry)
		if err != nil {
			return fmt.Errorf("failed to create HTTP metrics: %w", err)
		}
		s.engine.Use(httpMetrics.Handler())
	}
	s.engine.Use(middleware.CORS(s.config.CORS))

	repoOpts := []repository.Option{
		repository.WithLogger(s.logger.With(log.String(log.FieldComponent, "repository"))),
		repository.WithTracerProvider(s.tracer),
	}
	if s.config.Metrics.Enabled {
		repoMetrics, err := repository.NewMetrics(s.config.Metrics.Namespace, s.registry)
		if err != nil {
			return fmt.Errorf("failed to create repository metrics: %w", err)
		}
		repoOpts = append(repoOpts, repository.WithMetrics(repoMetrics))
	}

	tokens, err := auth.NewJWTManager(
		s.config.Auth.JWT.Secret,
		s.config.Auth.JWT.Algorithm,
		s.config.Auth.JWT.ExpiresIn,
		s.config.Auth.JWT.Issuer,
	)
	if err != nil {
		return fmt.Errorf("failed to create JWT manager: %w", err)
	}

	handlerLogger := s.logger.With(log.String(log.FieldComponent, "handler"))
	api := s.engine.Group("/api")

	handler.NewDetailHandler(
		repository.New[portfolio.Detail](s.db.Collection(handler.CollectionDetail), repoOpts...), handlerLogger,
	).RegisterRoutes(api)
	handler.NewTechStackHandler(
		repository.New[portfolio.TechStack](s.db.Collection(handler.CollectionTechStack), repoOpts...), handlerLogger,
	).RegisterRoutes(api)
	handler.NewProjectHandler(
		repository.New[portfolio.Project](s.db.Collection(handler.CollectionProject), repoOpts...), handlerLogger,
	).RegisterRoutes(api)
	handler.NewExperienceHandler(
		repository.New[portfolio.Experience](s.db.Collection(handler.CollectionExperience), repoOpts...), handlerLogger,
	).RegisterRoutes(api)
	handler.NewUserHandler(
		repository.New[portfolio.User](s.db.Collection(handler.CollectionUser), repoOpts...),
		s.hasher,
		tokens,
		handlerLogger,
	).RegisterRoutes(api)

	s.engine.GET("/health", s.handleHealth)
	if s.config.Metrics.Enabled {
		s.engine.GET(s.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	return nil
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	status := store.Health(c.Request.Context(), s.db)
	if status.Status != "healthy" {
		s.logger.WithContext(c.Request.Context()).Warn("Store health check failed", log.String("reason", status.Message))
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Registry returns the metrics registry exposed on the metrics path
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.running = true
	errCh := make(chan error, 1)
	s.serveErr = errCh

	go func() {
		s.logger.Info("Server listening", log.String("address", listener.Addr().String()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", log.Error(err))
			errCh <- err
		}
		close(errCh)
	}()

	return nil
}

// Errors reports a serve failure after Start; it is closed when serving stops
func (s *Server) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Shutdown stops accepting requests and waits for in-flight ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, ok := ctx.Deadline(); !ok {
		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
