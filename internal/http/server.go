// Package http provides the API server: router assembly, health and
// readiness endpoints, and the shared middleware stack.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server represents the API HTTP server.
type Server struct {
	db         *sql.DB
	router     *gin.Engine
	server     *http.Server
	logger     *slog.Logger
	registrars []func(*gin.Engine)
}

// Option customizes the server during construction. Middleware options run
// before any route is registered; route options run after the built-in
// health endpoints.
type Option func(*Server)

// WithCORS enables CORS handling for the configured origins. No-op when
// disabled or when no valid origin is configured.
func WithCORS(enabled bool, allowOrigins string) Option {
	return func(s *Server) {
		middleware := createCORSMiddleware(enabled, allowOrigins, s.logger)
		if middleware != nil {
			s.router.Use(middleware)
		}
	}
}

// WithMiddleware installs an additional global middleware, such as HTTP
// metrics collection.
func WithMiddleware(middleware gin.HandlerFunc) Option {
	return func(s *Server) {
		if middleware != nil {
			s.router.Use(middleware)
		}
	}
}

// WithRoutes registers API routes on the router. Registration is deferred
// until the full middleware stack is in place.
func WithRoutes(register func(*gin.Engine)) Option {
	return func(s *Server) {
		s.registrars = append(s.registrars, register)
	}
}

// NewServer creates a new API HTTP server with the base middleware stack:
// panic recovery, request ID generation (UUIDv7) and request logging.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		db:     db,
		router: gin.New(),
		logger: logger,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	s.router.Use(CustomLoggerMiddleware(logger))

	for _, opt := range opts {
		opt(s)
	}

	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readinessHandler)

	for _, register := range s.registrars {
		register(s.router)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness. The database must be reachable for the
// server to accept traffic.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	ready := true
	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Error("readiness check failed",
				slog.String("component", "database"),
				slog.String("error", err.Error()))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
