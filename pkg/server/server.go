// Package server wires Ember's components into the HTTP proxy server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"emberhq/ember/pkg/cache"
	"emberhq/ember/pkg/config"
	"emberhq/ember/pkg/engine"
	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/proxy/handlers"
	"emberhq/ember/pkg/proxy/middleware"
	"emberhq/ember/pkg/ratelimit"
	"emberhq/ember/pkg/session"
)

// Deps are the components the server serves.
type Deps struct {
	Ledger  *session.Ledger
	Cache   *cache.Controller
	Engine  engine.Client
	Metrics *metrics.Metrics
	Limiter *ratelimit.Limiter
}

// Server is the Ember HTTP proxy server.
type Server struct {
	config         config.ServerConfig
	metricsEnabled bool
	deps           Deps

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server.
func New(cfg config.ServerConfig, metricsCfg config.MetricsConfig, deps Deps) *Server {
	return &Server{
		config:         cfg,
		metricsEnabled: metricsCfg.Enabled,
		deps:           deps,
		shutdownChan:   make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	// WriteTimeout stays zero: generations stream for an unbounded time
	// and must not be cut off by the server.
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting proxy server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// Handler returns the configured HTTP handler: all routes plus the
// middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	sessions := handlers.NewSessionsHandler(s.deps.Ledger)
	cacheAdmin := handlers.NewCacheHandler(s.deps.Cache)
	chat := handlers.NewChatHandler(s.deps.Ledger, s.deps.Cache, s.deps.Engine, s.deps.Metrics)

	mux.Handle("GET /v1/health", handlers.NewHealthHandler(s.deps.Engine))
	mux.Handle("GET /v1/ready", handlers.NewReadyHandler(s.deps.Engine))

	mux.HandleFunc("GET /v1/sessions", sessions.List)
	mux.HandleFunc("POST /v1/sessions", sessions.Create)
	mux.HandleFunc("GET /v1/sessions/{id}", sessions.Get)
	mux.HandleFunc("DELETE /v1/sessions/{id}", sessions.Delete)

	mux.HandleFunc("GET /v1/cache", cacheAdmin.Keys)
	mux.HandleFunc("DELETE /v1/cache", cacheAdmin.Clear)

	mux.Handle("GET /v1/admin/metrics", handlers.NewMetricsHandler(s.deps.Metrics))
	if s.metricsEnabled {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	// Admission control runs before the chat pipeline touches cache,
	// session, or inference state.
	mux.Handle("POST /v1/chat/completions",
		middleware.RateLimit(s.deps.Limiter, s.deps.Metrics)(chat))

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// Stop requests a shutdown from another goroutine.
func (s *Server) Stop() {
	close(s.shutdownChan)
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
