// Package server provides the HTTP server implementation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vkuksa/supermarkets/internal/config"
	"github.com/vkuksa/supermarkets/internal/handler"
	"github.com/vkuksa/supermarkets/internal/middleware"
	"github.com/vkuksa/supermarkets/internal/session"
	"github.com/vkuksa/supermarkets/internal/store"
)

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	router       *mux.Router
	config       *config.Config
	logger       *zap.Logger
	watchHandler *handler.WatchHandler
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *zap.Logger, stores *store.Registry, sessions *session.Manager) *Server {
	router := mux.NewRouter()

	s := &Server{
		router: router,
		config: cfg,
		logger: logger,
	}

	s.setupMiddleware(sessions)
	s.setupRoutes(stores, sessions)
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware(sessions *session.Manager) {
	allowedOrigins := []string{"*"}
	allowedMethods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowedHeaders := []string{
		"Content-Type",
		middleware.RequestIDHeader,
	}

	// Apply middleware in order (first applied = outermost)
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	// Add metrics middleware if enabled
	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(allowedOrigins, allowedMethods, allowedHeaders)))

	// Session resolution runs innermost so guards and handlers see the
	// current user.
	s.router.Use(mux.MiddlewareFunc(middleware.Session(sessions, s.logger)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes(stores *store.Registry, sessions *session.Manager) {
	// Watch route first: it must win over the {id} route for the same
	// prefix, and mux matches in registration order.
	s.watchHandler = handler.NewWatchHandler(stores, s.logger)
	s.watchHandler.RegisterRoutes(s.router)

	restHandler := handler.NewRESTHandler(stores, s.logger)
	restHandler.RegisterRoutes(s.router)

	authHandler := handler.NewAuthHandler(sessions, s.logger)
	authHandler.RegisterRoutes(s.router)

	pageHandler := handler.NewPageHandler(s.config.LoginPath, s.config.DashboardPath, s.logger)
	pageHandler.RegisterRoutes(s.router)

	// Metrics endpoint
	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// setupHTTPServer configures the HTTP server.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	// Close all WebSocket connections first
	if s.watchHandler != nil {
		s.watchHandler.CloseAllConnections()
	}

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the server's router for testing purposes.
func (s *Server) Router() *mux.Router {
	return s.router
}
